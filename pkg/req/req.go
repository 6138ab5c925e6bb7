package req

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"sql-lab/pkg/res"
)

const maxBodyBytes = 1 << 20

// HandleBody decodes a JSON request body into T. On failure it has already
// answered the request with a 400 and the caller only needs to return.
func HandleBody[T any](w *http.ResponseWriter, r *http.Request) (*T, error) {
	body, err := Decode[T](io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		res.Error(*w, err.Error(), http.StatusBadRequest)
		return nil, err
	}
	return body, nil
}

func Decode[T any](body io.Reader) (*T, error) {
	var payload T
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	return &payload, nil
}
