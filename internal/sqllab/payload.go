package sqllab

type ResultSet struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// QueryResult is everything a statement produced, before flattening.
type QueryResult struct {
	ResultSets  []ResultSet `json:"resultSets"`
	RowsTotal   int         `json:"rowsTotal"`
	DurationMs  int64       `json:"durationMs"`
	WarningNote string      `json:"warningNote,omitempty"`
}
