// Package runner drives the query lifecycle of the client: loading the catalog,
// running a query by id and fetching the schema introspection.
//
// A Controller is owned by one event loop. The Fetch*/Execute methods only do
// I/O and may run on any goroutine; the Begin*/Apply* methods mutate state and
// must be called from the loop that owns the Controller.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"golang.org/x/text/message"

	"sql-lab/internal/catalog"
	"sql-lab/internal/i18n"
	"sql-lab/pkg/api"
)

// Backend is the HTTP collaborator serving the catalog, runs and introspection.
type Backend interface {
	FetchCatalog(ctx context.Context) (catalog.Text, error)
	RunQuery(ctx context.Context, qid catalog.QueryID) (*api.RunQueryResponse, error)
	Introspect(ctx context.Context) (json.RawMessage, error)
}

type Controller struct {
	backend  Backend
	catalog  catalog.Catalog
	state    State
	selected catalog.QueryID
	gen      uint64
	pending  uint64

	printer *message.Printer
	diag    io.Writer
	log     *slog.Logger
}

type Option func(*Controller)

func WithPrinter(p *message.Printer) Option {
	return func(c *Controller) { c.printer = p }
}

// WithDiagnostics sets where introspection payloads are written.
func WithDiagnostics(w io.Writer) Option {
	return func(c *Controller) { c.diag = w }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func New(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		state:   Idle{},
		printer: i18n.Printer("en"),
		diag:    io.Discard,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	return c.state
}

// Selected is the id of the last query a run was started for.
func (c *Controller) Selected() catalog.QueryID {
	return c.selected
}

func (c *Controller) Catalog() *catalog.Catalog {
	return &c.catalog
}

// CatalogOutcome is the result of a catalog fetch.
type CatalogOutcome struct {
	Text catalog.Text
	Err  error
}

func (c *Controller) FetchCatalog(ctx context.Context) CatalogOutcome {
	text, err := c.backend.FetchCatalog(ctx)
	return CatalogOutcome{Text: text, Err: err}
}

// ApplyCatalog stores a fetched catalog. On failure the previous text is kept
// and the state becomes Failed.
func (c *Controller) ApplyCatalog(o CatalogOutcome) error {
	if o.Err != nil {
		err := &CatalogLoadError{Err: o.Err}
		c.fail(i18n.MsgCatalogLoadError, err)
		return err
	}
	c.catalog.Replace(o.Text)
	c.log.Debug("catalog loaded", "bytes", len(o.Text))
	return nil
}

func (c *Controller) LoadCatalog(ctx context.Context) error {
	return c.ApplyCatalog(c.FetchCatalog(ctx))
}

// BeginRun drops any previous result or error, selects qid and enters Loading.
// Any id is accepted, including ids missing from the catalog.
func (c *Controller) BeginRun(qid catalog.QueryID) Ticket {
	c.gen++
	c.pending = c.gen
	c.selected = qid
	c.state = Loading{QID: qid}
	c.log.Debug("run started", "qid", qid, "gen", c.gen)
	return Ticket{Gen: c.gen, QID: qid}
}

// RunOutcome is the backend's answer to one run request.
type RunOutcome struct {
	Ticket Ticket
	Result *api.RunQueryResponse
	Err    error
}

func (c *Controller) Execute(ctx context.Context, t Ticket) RunOutcome {
	res, err := c.backend.RunQuery(ctx, t.QID)
	return RunOutcome{Ticket: t, Result: res, Err: err}
}

// ApplyRun leaves Loading for Loaded or Failed. Outcomes of superseded or
// already applied tickets are dropped and ApplyRun reports false.
func (c *Controller) ApplyRun(o RunOutcome) bool {
	if o.Ticket.Gen != c.pending {
		c.log.Debug("stale run outcome dropped", "qid", o.Ticket.QID, "gen", o.Ticket.Gen, "latest", c.gen)
		return false
	}
	c.pending = 0

	if o.Err != nil {
		c.fail(i18n.MsgRunError, &RunError{QID: o.Ticket.QID, Err: o.Err})
		return true
	}
	c.state = Loaded{Result: o.Result}
	return true
}

// RunQuery runs qid to completion on the calling goroutine.
func (c *Controller) RunQuery(ctx context.Context, qid catalog.QueryID) State {
	c.ApplyRun(c.Execute(ctx, c.BeginRun(qid)))
	return c.state
}

// IntrospectionOutcome is the result of a schema introspection request.
type IntrospectionOutcome struct {
	Payload json.RawMessage
	Err     error
}

func (c *Controller) FetchIntrospection(ctx context.Context) IntrospectionOutcome {
	payload, err := c.backend.Introspect(ctx)
	return IntrospectionOutcome{Payload: payload, Err: err}
}

// ApplyIntrospection writes a successful payload to the diagnostics writer and
// returns the notice to show. It never starts or ends Loading; a failure only
// replaces the state with Failed.
func (c *Controller) ApplyIntrospection(o IntrospectionOutcome) (string, error) {
	if o.Err != nil {
		err := &IntrospectionError{Err: o.Err}
		c.fail(i18n.MsgIntrospectionError, err)
		return "", err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, o.Payload, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(o.Payload)
	}
	if _, err := io.WriteString(c.diag, "Introspection: "+pretty.String()+"\n"); err != nil {
		c.log.Warn("failed to write introspection payload", "error", err)
	}
	c.log.Info("introspection completed", "bytes", len(o.Payload))
	return c.printer.Sprintf(i18n.MsgIntrospectionDone), nil
}

func (c *Controller) RunIntrospection(ctx context.Context) (string, error) {
	return c.ApplyIntrospection(c.FetchIntrospection(ctx))
}

func (c *Controller) fail(key string, err error) {
	msg := c.printer.Sprintf(key, unwrapOnce(err))
	c.state = Failed{Message: msg, Err: err}
	c.log.Warn("request failed", "error", err)
}

func unwrapOnce(err error) error {
	if u, ok := err.(interface{ Unwrap() error }); ok && u.Unwrap() != nil {
		return u.Unwrap()
	}
	return err
}
