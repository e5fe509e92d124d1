package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rcliao/second-mind/internal/model"
	"github.com/rcliao/second-mind/internal/store"
)

func init() {
	memoryCmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and edit memory files",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List memory files",
		Args:  cobra.NoArgs,
		Run:   runMemoryList,
	}

	getCmd := &cobra.Command{
		Use:   "get <filename>",
		Short: "Print a memory file",
		Args:  cobra.ExactArgs(1),
		Run:   runMemoryGet,
	}

	editCmd := &cobra.Command{
		Use:   "edit <filename>",
		Short: "Replace a memory file's content",
		Long:  "Replace a memory file's content from --file or stdin. The previous content is kept in the file's history.",
		Args:  cobra.ExactArgs(1),
		Run:   runMemoryEdit,
	}
	editCmd.Flags().String("file", "", "Read new content from this file instead of stdin")
	editCmd.Flags().Int("expect-version", 0, "Fail unless the file is at this version")

	historyCmd := &cobra.Command{
		Use:   "history <filename>",
		Short: "Show superseded versions of a memory file",
		Args:  cobra.ExactArgs(1),
		Run:   runMemoryHistory,
	}

	memoryCmd.AddCommand(listCmd, getCmd, editCmd, historyCmd)
	RootCmd.AddCommand(memoryCmd)
}

func runMemoryList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	printFileList(cmd, s)
}

func printFileList(cmd *cobra.Command, s *store.SQLiteStore) {
	files, err := s.List(cmd.Context())
	if err != nil {
		exitErr("list", err)
	}
	if files == nil {
		files = []model.MemoryFile{}
	}

	out := cmd.OutOrStdout()
	if formatFlag != "text" {
		printJSON(out, files)
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, f := range files {
		fmt.Fprintf(tw, "%s\tv%d\t%s\n", f.Filename, f.Version, f.Description)
	}
	tw.Flush()
}

func runMemoryGet(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	f, err := s.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}

	if formatFlag == "text" {
		fmt.Fprint(cmd.OutOrStdout(), f.Content)
		return
	}
	printJSON(cmd.OutOrStdout(), f)
}

func runMemoryEdit(cmd *cobra.Command, args []string) {
	path, _ := cmd.Flags().GetString("file")
	expect, _ := cmd.Flags().GetInt("expect-version")

	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		exitErr("read content", err)
	}
	if len(data) == 0 {
		exitErr("edit", errors.New("content is required"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	f, err := s.Update(cmd.Context(), store.UpdateParams{
		Filename:        args[0],
		Content:         string(data),
		ExpectedVersion: expect,
	})
	if err != nil {
		exitErr("edit", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"filename":%q,"version":%d}`+"\n", f.Filename, f.Version)
}

func runMemoryHistory(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	versions, err := s.History(cmd.Context(), args[0])
	if err != nil {
		exitErr("history", err)
	}
	if versions == nil {
		versions = []model.MemoryFileVersion{}
	}

	out := cmd.OutOrStdout()
	if formatFlag != "text" {
		printJSON(out, versions)
		return
	}
	for _, v := range versions {
		fmt.Fprintf(out, "v%d\t%s\t%d bytes\n", v.Version, v.CreatedAt.Format("2006-01-02 15:04:05"), len(v.Content))
	}
}
