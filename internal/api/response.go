package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("error encoding response: %v", err)
		}
	}
}

// jsonError writes the API's uniform error body. Clients only ever see
// {"message": ...}; detail for 500s belongs in the server log.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"message": message})
}

// jsonValidationError writes a 400 with field-level messages.
func jsonValidationError(w http.ResponseWriter, fields map[string]string) {
	jsonResponse(w, http.StatusBadRequest, map[string]any{
		"message": "validation failed",
		"errors":  fields,
	})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
