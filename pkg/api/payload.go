// Package api holds the JSON bodies exchanged between the sqllab backend and its clients.
package api

const (
	PathHealth     = "/api/health"
	PathQueries    = "/api/queries"
	PathCatalog    = "/api/catalog"
	PathRunQuery   = "/api/run/query"
	PathIntrospect = "/api/introspect"
	PathScripts    = "/api/scripts"
)

// CatalogResponse carries the raw multi-query script.
type CatalogResponse struct {
	SQL string `json:"sql"`
}

type RunQueryRequest struct {
	QID string `json:"qid"`
}

// RunQueryResponse is the result of running one catalog query. Rows are keyed by
// column name; a value may be null.
type RunQueryResponse struct {
	Status  string           `json:"status,omitempty"`
	QID     string           `json:"qid"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Warning string           `json:"warning,omitempty"`
}

// CatalogEntry is one query of the catalog as an explicit (qid, sql) pair.
type CatalogEntry struct {
	QID   string `json:"qid"`
	Title string `json:"title,omitempty"`
	SQL   string `json:"sql"`
}

type CatalogEntriesResponse struct {
	Queries []CatalogEntry `json:"queries"`
}

type ColumnInfo struct {
	ColumnName    string  `json:"column_name"`
	DataType      string  `json:"data_type"`
	IsNullable    string  `json:"is_nullable"`
	ColumnDefault *string `json:"column_default"`
}

type IntrospectResponse struct {
	Schema string                  `json:"schema"`
	Tables map[string][]ColumnInfo `json:"tables"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type ScriptsResponse struct {
	Scripts []string `json:"scripts"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
