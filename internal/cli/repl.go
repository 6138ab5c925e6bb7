package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"sql-lab/internal/catalog"
	"sql-lab/internal/i18n"
	"sql-lab/internal/runner"
)

const replPrompt = "sqllab> "

func newREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive prompt: type a query id to run it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := getEnv(cmd)
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			r := &repl{
				ctrl:    e.controller(out),
				printer: e.printer,
				out:     out,
				errOut:  cmd.ErrOrStderr(),
				format:  outputFormat(e.cfg.Output, out),
			}
			if err := r.ctrl.LoadCatalog(ctx); err != nil {
				_, _ = fmt.Fprintln(r.errOut, r.ctrl.State().(runner.Failed).Message)
			}

			var historyFile string
			if home, err := os.UserHomeDir(); err == nil {
				historyFile = filepath.Join(home, ".sqllab_history")
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          replPrompt,
				HistoryFile:     historyFile,
				AutoComplete:    r.completer(),
				InterruptPrompt: "^C",
				EOFPrompt:       ".quit",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize REPL: %w", err)
			}
			defer func() { _ = rl.Close() }()

			_, _ = fmt.Fprintf(out, "SQL Lab REPL (%s)\n", e.cfg.Api.URL)
			_, _ = fmt.Fprintln(out, "Type a query id to run it, .help for commands, .quit to exit")
			_, _ = fmt.Fprintln(out)

			return r.loop(ctx, rl)
		},
	}
}

type lineReader interface {
	Readline() (string, error)
}

type repl struct {
	ctrl    *runner.Controller
	printer *message.Printer
	out     io.Writer
	errOut  io.Writer
	format  string
}

func (r *repl) loop(ctx context.Context, rl lineReader) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if quit := r.handle(ctx, line); quit {
			return nil
		}
		_, _ = fmt.Fprintln(r.out)
	}
}

// handle runs one input line and reports whether the REPL should exit.
func (r *repl) handle(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, ".") {
		st := r.ctrl.RunQuery(ctx, catalog.QueryID(line))
		if err := showResult(r.out, r.printer, r.ctrl, st, r.format); err != nil {
			_, _ = fmt.Fprintf(r.errOut, "Error: %v\n", err)
		}
		return false
	}

	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.out)

	case ".catalog":
		if err := r.ctrl.LoadCatalog(ctx); err != nil {
			_, _ = fmt.Fprintln(r.errOut, r.ctrl.State().(runner.Failed).Message)
			return false
		}
		_, _ = fmt.Fprintln(r.out, r.printer.Sprintf(i18n.MsgQueryListHeading))
		for _, id := range catalog.IDs(r.ctrl.Catalog().Text()) {
			_, _ = fmt.Fprintf(r.out, "  %-4s %s\n", id, r.ctrl.Catalog().Label(id))
		}

	case ".show":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(r.errOut, "Usage: .show <id>")
			return false
		}
		src, ok := r.ctrl.Catalog().Extract(catalog.QueryID(parts[1]))
		if !ok {
			_, _ = fmt.Fprintf(r.errOut, "Query %s not found in catalog\n", parts[1])
			return false
		}
		_, _ = fmt.Fprintln(r.out, src)

	case ".schema":
		notice, err := r.ctrl.RunIntrospection(ctx)
		if err != nil {
			_, _ = fmt.Fprintln(r.errOut, r.ctrl.State().(runner.Failed).Message)
			return false
		}
		_, _ = fmt.Fprintln(r.out, notice)

	default:
		_, _ = fmt.Fprintf(r.errOut, "Unknown command: %s (type .help for commands)\n", parts[0])
	}
	return false
}

func (r *repl) completer() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".catalog"),
		readline.PcItem(".show"),
		readline.PcItem(".schema"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
	}
	for _, id := range catalog.IDs(r.ctrl.Catalog().Text()) {
		items = append(items, readline.PcItem(string(id)))
	}
	return readline.NewPrefixCompleter(items...)
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  <id>            Run catalog query <id>
  .catalog        Reload the catalog and list its queries
  .show <id>      Print the source of query <id>
  .schema         Print the database schema
  .help           Show this help message
  .quit / .exit   Exit the REPL
`
	_, _ = fmt.Fprintln(w, help)
}
