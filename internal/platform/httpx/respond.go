// Package httpx provides the JSON response helpers shared by the API handlers.
package httpx

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
)

// MaxBodyBytes bounds request bodies accepted by DecodeJSON.
const MaxBodyBytes = 100 << 10

// MessageBody is the envelope carrying a human readable message and,
// on successful writes, the affected record.
type MessageBody struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Message sends a {"message": ...} body.
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, MessageBody{Message: message})
}

// MessageWithData sends a {"message": ..., "data": ...} body.
func MessageWithData(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, MessageBody{Message: message, Data: data})
}

// DecodeJSON decodes a size-limited JSON request body into target.
func DecodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	return json.NewDecoder(r.Body).Decode(target)
}

// IsJSON reports whether the request body should be parsed as JSON. A
// request without a Content-Type is treated as JSON.
func IsJSON(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
