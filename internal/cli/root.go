// Package cli provides the sqllab command line: the backend server, the
// migration tool and the clients that talk to the backend.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/text/message"

	"sql-lab/configs"
	"sql-lab/internal/client"
	"sql-lab/internal/i18n"
	"sql-lab/internal/render"
	"sql-lab/internal/runner"
	"sql-lab/pkg/logger"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

type envKey struct{}

// env is what every subcommand needs once the config is loaded.
type env struct {
	cfg     *configs.Config
	log     *slog.Logger
	printer *message.Printer
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "sqllab",
		Short: "SQL Lab - run catalog queries against a teaching database",
		Long: `SQL Lab serves a catalog of numbered SQL queries over HTTP and runs them
against a class database. The same binary ships the backend, the migration
tool and terminal clients.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := configs.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			e := &env{
				cfg:     cfg,
				log:     logger.New(cmd.ErrOrStderr(), cfg.Log),
				printer: i18n.Printer(cfg.Lang),
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, e))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("api-url", "", "Backend base URL (default "+configs.DefaultAPIURL+")")
	rootCmd.PersistentFlags().String("lang", "", "Message language (en|es)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|table|markdown|csv|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", render.FormatTable, render.FormatMarkdown, render.FormatCSV, render.FormatJSON}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("lang", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"en", "es"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newCatalogCommand())
	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newIntrospectCommand())
	rootCmd.AddCommand(newHealthCommand())
	rootCmd.AddCommand(newUICommand())
	rootCmd.AddCommand(newREPLCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command and prints the error, if any, to stderr.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	printError(os.Stderr, err)
	return err
}

// reportedError marks a failure whose message the command already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	return &reportedError{err: err}
}

func printError(w io.Writer, err error) {
	var done *reportedError
	if err == nil || errors.As(err, &done) {
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
}

func getEnv(cmd *cobra.Command) *env {
	if ctx := cmd.Context(); ctx != nil {
		if e, ok := ctx.Value(envKey{}).(*env); ok {
			return e
		}
	}
	cfg := &configs.Config{
		Api:  configs.ApiConfig{URL: configs.DefaultAPIURL},
		Lang: "en",
	}
	return &env{
		cfg:     cfg,
		log:     slog.New(slog.DiscardHandler),
		printer: i18n.Printer(cfg.Lang),
	}
}

func (e *env) client() *client.Client {
	return client.New(e.cfg.Api.URL,
		client.WithTimeout(e.cfg.Api.Timeout),
		client.WithLogger(e.log),
	)
}

func (e *env) controller(diag io.Writer) *runner.Controller {
	return runner.New(e.client(),
		runner.WithPrinter(e.printer),
		runner.WithDiagnostics(diag),
		runner.WithLogger(e.log),
	)
}

// outputFormat resolves "auto" to a table on a terminal and markdown when
// the output is piped.
func outputFormat(format string, w io.Writer) string {
	switch format {
	case render.FormatTable, render.FormatMarkdown, render.FormatCSV, render.FormatJSON:
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return render.FormatTable
	}
	return render.FormatMarkdown
}
