package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/second-mind/internal/seed"
)

func init() {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load starter memory files",
		Long: `Load memory files from a YAML seed file, or the built-in starter set when
--file is not given. Existing files are updated in place and keep their history;
unchanged files stay at their current version.`,
		Args: cobra.NoArgs,
		Run:  runSeed,
	}

	cmd.Flags().String("file", "", "YAML seed file (same layout as export)")

	RootCmd.AddCommand(cmd)
}

func runSeed(cmd *cobra.Command, args []string) {
	path, _ := cmd.Flags().GetString("file")

	var (
		docs []seed.Document
		err  error
	)
	if path == "" {
		docs, err = seed.Defaults()
	} else {
		f, openErr := os.Open(path)
		if openErr != nil {
			exitErr("open seed file", openErr)
		}
		docs, err = seed.Load(f)
		f.Close()
	}
	if err != nil {
		exitErr("load seed", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	n, err := s.Import(cmd.Context(), seed.PutParams(docs))
	if err != nil {
		exitErr("seed", err)
	}

	if formatFlag == "text" {
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d memory files:\n", n)
		printFileList(cmd, s)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"seeded":%d}`+"\n", n)
}
