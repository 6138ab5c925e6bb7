package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"sql-lab/internal/tui"
	"sql-lab/pkg/logger"
)

func newUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the terminal UI",
		Long: `Open the full-screen client. Keys 1-7 run queries, i introspects the schema,
r reloads the catalog, tab shows the catalog and q quits. Introspection
payloads are printed once the UI exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := getEnv(cmd)

			// The alternate screen owns the terminal until exit, so logs and
			// payloads are held back until then.
			var diag bytes.Buffer
			held := *e
			held.log = logger.New(&diag, e.cfg.Log)
			ctrl := held.controller(&diag)

			err := tui.Run(cmd.Context(), ctrl, e.printer)
			if diag.Len() > 0 {
				_, _ = fmt.Fprint(cmd.ErrOrStderr(), diag.String())
			}
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sqllab v%s (%s)\n", Version, GitCommit)
		},
	}
}
