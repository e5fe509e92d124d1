package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/second-mind/internal/seed"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memory files as YAML",
		Long:  "Export every memory file's current content as YAML. The output can be loaded back with seed --file.",
		Args:  cobra.NoArgs,
		Run:   runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Write to this file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	outPath, _ := cmd.Flags().GetString("out")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	files, err := s.ExportAll(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			exitErr("create output", err)
		}
		defer f.Close()
		w = f
	}

	if err := seed.Encode(w, seed.FromMemoryFiles(files)); err != nil {
		exitErr("export", err)
	}
}
