package sqllab

import "sql-lab/pkg/api"

const multipleResultSetsWarning = "query returned multiple result sets; only the first result set is returned in 'rows'"

// Flatten keeps the first result set of out as the run response for qid.
func Flatten(qid string, out *QueryResult) *api.RunQueryResponse {
	resp := &api.RunQueryResponse{
		Status:  "success",
		QID:     qid,
		Columns: []string{},
		Rows:    make([]map[string]any, 0),
	}
	if out == nil {
		return resp
	}

	if len(out.ResultSets) > 0 {
		first := out.ResultSets[0]
		if first.Columns != nil {
			resp.Columns = first.Columns
		}
		if first.Rows != nil {
			resp.Rows = first.Rows
		}
	}

	resp.Warning = out.WarningNote
	if resp.Warning == "" && len(out.ResultSets) > 1 {
		resp.Warning = multipleResultSetsWarning
	}
	return resp
}
