package cli

import (
	"github.com/spf13/cobra"

	"sql-lab/internal/migrate"
	"sql-lab/internal/server"
	"sql-lab/pkg/db"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backend HTTP server",
		Long: `Serve the query catalog, query runs, schema introspection and the script
listing over HTTP. Prometheus metrics are exposed at /metrics.`,
		Example: `  sqllab serve
  SQLLAB_SERVER_ADDR=:9000 DB_HOST=db sqllab serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := getEnv(cmd)
			ctx := cmd.Context()

			deps, cleanup, err := server.Open(ctx, e.cfg, e.log)
			if err != nil {
				return err
			}
			defer cleanup()

			return server.New(deps).Serve(ctx)
		},
	}
	return cmd
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create and seed the database, then run every catalog query",
		Long: `Wait for the database, apply schema.sql and seed.sql from the script source
and print the result of every query in the catalog.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := getEnv(cmd)
			ctx := cmd.Context()

			conn, err := db.Open(e.cfg.Db)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			store, err := server.OpenStore(ctx, e.cfg, e.log)
			if err != nil {
				return err
			}

			m := migrate.New(migrate.Deps{
				Db:          conn,
				Store:       store,
				Out:         cmd.OutOrStdout(),
				Logger:      e.log,
				Printer:     e.printer,
				Config:      e.cfg.Migrate,
				CatalogName: e.cfg.Sql.Catalog,
			})
			return m.Run(ctx)
		},
	}
	return cmd
}
