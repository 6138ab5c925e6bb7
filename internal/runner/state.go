package runner

import (
	"sql-lab/internal/catalog"
	"sql-lab/pkg/api"
)

// State is the run state of the client. It is always exactly one of Idle,
// Loading, Loaded or Failed.
type State interface {
	isState()
}

// Idle is the initial state: nothing has been run yet.
type Idle struct{}

// Loading means a run request for QID is in flight.
type Loading struct {
	QID catalog.QueryID
}

// Loaded holds the last applied run result.
type Loaded struct {
	Result *api.RunQueryResponse
}

// Failed holds the user-facing message of the last failure. Err is the typed
// cause (*CatalogLoadError, *RunError or *IntrospectionError).
type Failed struct {
	Message string
	Err     error
}

func (Idle) isState()    {}
func (Loading) isState() {}
func (Loaded) isState()  {}
func (Failed) isState()  {}

// Ticket identifies one run request. Only the outcome carrying the most
// recently issued ticket is applied.
type Ticket struct {
	Gen uint64
	QID catalog.QueryID
}
