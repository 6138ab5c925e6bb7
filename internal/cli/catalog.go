package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sql-lab/internal/catalog"
	"sql-lab/internal/render"
)

func newCatalogCommand() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the query catalog",
		Long:  `Print the raw catalog script served by the backend, or with --list one row per query.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := getEnv(cmd)
			c := e.client()
			out := cmd.OutOrStdout()

			if !list {
				text, err := c.FetchCatalog(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(out, text)
				return err
			}

			entries, err := c.Entries(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]any, len(entries))
			for i, entry := range entries {
				rows[i] = []any{entry.QID, entry.Title}
			}
			_, err = fmt.Fprintln(out, render.Grid([]string{"qid", "title"}, rows, 0))
			return err
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "List query ids and titles")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "show <id>",
		Short:   "Print the source of one catalog query",
		Example: `  sqllab show 3`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := getEnv(cmd)
			ctrl := e.controller(cmd.ErrOrStderr())
			if err := ctrl.LoadCatalog(cmd.Context()); err != nil {
				return err
			}

			src, ok := ctrl.Catalog().Extract(catalog.QueryID(args[0]))
			if !ok {
				return fmt.Errorf("query %s not found in catalog", args[0])
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), src)
			return err
		},
	}
}
