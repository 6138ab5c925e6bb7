package res

import (
	"encoding/json"
	"net/http"
)

func Json(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// Error writes the {"detail": ...} body every API error uses.
func Error(w http.ResponseWriter, detail string, statusCode int) {
	Json(w, map[string]string{"detail": detail}, statusCode)
}
