package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"sql-lab/internal/catalog"
	"sql-lab/internal/i18n"
	"sql-lab/internal/render"
	"sql-lab/internal/runner"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <id>",
		Short: "Run one catalog query on the backend",
		Long: `Ask the backend to run a catalog query and print the result. With --output
auto a terminal gets a table and a pipe gets markdown.`,
		Example: `  sqllab run 1
  sqllab run 4 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := getEnv(cmd)
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			format := outputFormat(e.cfg.Output, out)
			qid := catalog.QueryID(args[0])

			ctrl := e.controller(cmd.ErrOrStderr())
			if err := ctrl.LoadCatalog(ctx); err != nil {
				e.log.Warn("catalog unavailable, running without label", "error", err)
			}

			st := ctrl.RunQuery(ctx, qid)
			if err := showResult(out, e.printer, ctrl, st, format); err != nil {
				return err
			}
			if failed, ok := st.(runner.Failed); ok {
				return reported(failed.Err)
			}
			return nil
		},
	}
}

// showResult prints the "Query N:" heading with the query label, then the
// view for st. JSON output carries the result alone.
func showResult(w io.Writer, p *message.Printer, ctrl *runner.Controller, st runner.State, format string) error {
	if format != render.FormatJSON {
		sel := ctrl.Selected()
		heading := p.Sprintf(i18n.MsgQueryHeading, string(sel))
		if _, err := fmt.Fprintln(w, heading+" "+ctrl.Catalog().Label(sel)); err != nil {
			return err
		}
	}
	return render.State(w, p, st, format)
}

func newIntrospectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "introspect",
		Short: "Print the database schema as reported by the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := getEnv(cmd)

			ctrl := e.controller(cmd.OutOrStdout())
			notice, err := ctrl.RunIntrospection(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.ErrOrStderr(), notice)
			return err
		},
	}
}

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := getEnv(cmd)
			c := e.client()

			h, err := c.Health(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", h.Status, h.Timestamp, c.BaseURL())
			return err
		},
	}
}
