package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/second-mind/internal/dispatch"
	"github.com/rcliao/second-mind/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask <command...>",
		Short: "Dispatch a single command",
		Long: `Classify a command, pick the memory files it needs and answer it.

Examples:
  second-mind ask what should I read next
  second-mind ask -f text show me Travel.md`,
		Args: cobra.MinimumNArgs(1),
		Run:  runAsk,
	}

	RootCmd.AddCommand(cmd)
}

func runAsk(cmd *cobra.Command, args []string) {
	command := strings.TrimSpace(strings.Join(args, " "))
	if command == "" {
		exitErr("ask", errors.New("command is required"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	d, err := newDispatcher(cfg, s)
	if err != nil {
		exitErr("configure generation backend", err)
	}

	resp, err := d.Dispatch(cmd.Context(), dispatch.Request{Command: command})
	if errors.Is(err, dispatch.ErrManifestUnavailable) {
		exitErr("ask", errors.New("memory is temporarily unavailable, try again"))
	}
	if err != nil {
		exitErr("ask", err)
	}

	out := cmd.OutOrStdout()
	if formatFlag != "text" {
		printJSON(out, resp)
		return
	}

	if resp.Intent != model.IntentMemoryInspect {
		fmt.Fprintln(out, resp.Response)
		return
	}

	// memory_inspect is answered by showing the file, or the list of files.
	if target, ok := resp.ActionDetails[model.ActionTargetFile].(string); ok {
		f, err := s.Get(cmd.Context(), target)
		if err != nil {
			exitErr("get", err)
		}
		fmt.Fprint(out, f.Content)
		return
	}
	printFileList(cmd, s)
}
