package sqllab

import (
	"fmt"
	"strings"

	"sql-lab/pkg/api"
)

// ValidateRunRequest checks the body of a run request. Any non-blank id is
// accepted; whether it exists is decided by the catalog.
func ValidateRunRequest(req *api.RunQueryRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidRequest)
	}
	qid := strings.TrimSpace(req.QID)
	if qid == "" {
		return fmt.Errorf("%w: qid is required", ErrInvalidRequest)
	}
	if strings.ContainsAny(qid, "\r\n") {
		return fmt.Errorf("%w: qid must be a single line", ErrInvalidRequest)
	}
	return nil
}
