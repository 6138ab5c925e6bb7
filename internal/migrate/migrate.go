// Package migrate prepares the lab database: it waits for the server, applies
// schema.sql and seed.sql and prints the result of every catalog query.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/text/message"

	"sql-lab/configs"
	"sql-lab/internal/catalog"
	"sql-lab/internal/i18n"
	"sql-lab/internal/render"
	"sql-lab/internal/scripts"
	"sql-lab/pkg/db"
)

const (
	SchemaFile = "schema.sql"
	SeedFile   = "seed.sql"

	cellWidth = 24
)

type Deps struct {
	Db          *db.Db
	Store       scripts.Store
	Out         io.Writer
	Logger      *slog.Logger
	Printer     *message.Printer
	Config      configs.MigrateConfig
	CatalogName string
}

type Migrator struct {
	db          *db.Db
	store       scripts.Store
	out         io.Writer
	log         *slog.Logger
	printer     *message.Printer
	retries     int
	delay       time.Duration
	catalogName string
}

func New(deps Deps) *Migrator {
	delay := deps.Config.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}
	p := deps.Printer
	if p == nil {
		p = i18n.Printer("en")
	}
	return &Migrator{
		db:          deps.Db,
		store:       deps.Store,
		out:         deps.Out,
		log:         deps.Logger,
		printer:     p,
		retries:     deps.Config.Retries,
		delay:       delay,
		catalogName: deps.CatalogName,
	}
}

// WaitForDB pings the database until it answers, retrying with a constant
// delay.
func (m *Migrator) WaitForDB(ctx context.Context) error {
	attempts := max(m.retries, 1)
	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(m.delay))

	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := m.db.PingContext(pingCtx); err != nil {
			m.log.Warn("database not ready", "attempt", attempt, "of", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("database not reachable after %d attempts: %w", attempt, err)
	}
	m.log.Info("database is ready", "dialect", m.db.Dialect)
	return nil
}

// ApplyFile runs one script in a transaction. A missing optional script is
// skipped with a warning.
func (m *Migrator) ApplyFile(ctx context.Context, name string, required bool) error {
	body, err := m.store.Read(ctx, name)
	if errors.Is(err, scripts.ErrNotFound) && !required {
		m.log.Warn("script not found, skipping", "name", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to apply %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	m.log.Info("script applied", "name", name)
	return nil
}

// RunCatalog executes every catalog query and prints its rows. It returns the
// number of queries that failed.
func (m *Migrator) RunCatalog(ctx context.Context) (int, error) {
	body, err := m.store.Read(ctx, m.catalogName)
	if errors.Is(err, scripts.ErrNotFound) {
		m.log.Warn("catalog not found, skipping", "name", m.catalogName)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", m.catalogName, err)
	}

	failed := 0
	for _, e := range catalog.Entries(catalog.Text(body)) {
		query := catalog.StripComments(e.SQL)
		if query == "" {
			continue
		}
		heading := m.printer.Sprintf(i18n.MsgQueryHeading, string(e.ID))
		if e.Title != "Query "+string(e.ID) {
			heading += " " + e.Title
		}
		fmt.Fprintf(m.out, "\n%s\n%s\n", heading, strings.Repeat("=", 80))
		if err := m.printQuery(ctx, query); err != nil {
			failed++
			fmt.Fprintln(m.out, m.printer.Sprintf(i18n.MsgRunError, err))
			m.log.Warn("catalog query failed", "qid", e.ID, "error", err)
		}
	}
	return failed, nil
}

func (m *Migrator) printQuery(ctx context.Context, query string) error {
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, data, err := collect(rows)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		_, err = fmt.Fprintln(m.out, m.printer.Sprintf(i18n.MsgNoResults))
		return err
	}

	fmt.Fprintln(m.out, render.Grid(cols, data, cellWidth))
	_, err = fmt.Fprintln(m.out, m.printer.Sprintf(i18n.MsgTotalRows, len(data)))
	return err
}

func collect(rows *sql.Rows) ([]string, [][]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var data [][]any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		data = append(data, raw)
	}
	return cols, data, rows.Err()
}

// Run performs the whole migration. Every step is attempted; the error
// reports the schema and seed steps that failed.
func (m *Migrator) Run(ctx context.Context) error {
	if err := m.WaitForDB(ctx); err != nil {
		return err
	}

	var errs []error
	if err := m.ApplyFile(ctx, SchemaFile, true); err != nil {
		m.log.Error("schema failed", "error", err)
		errs = append(errs, err)
	}
	if err := m.ApplyFile(ctx, SeedFile, false); err != nil {
		m.log.Error("seed failed", "error", err)
		errs = append(errs, err)
	}

	failed, err := m.RunCatalog(ctx)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		m.log.Warn("migration finished with errors", "failed_queries", failed)
		return errors.Join(errs...)
	}
	m.log.Info("migration completed", "failed_queries", failed)
	return nil
}
