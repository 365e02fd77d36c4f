// Package envelope implements the uniform response wrapper shared by the API
// server and its clients: {"statusCode": int, "message": string, "data": any}.
//
// A response is successful only when data is present and not null. The HTTP
// status code alone does not decide success.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// Envelope is the wire shape of every response.
type Envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Error is returned when an envelope carries no data.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// WriteData writes a success envelope holding v.
func WriteData(w http.ResponseWriter, status int, message string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("ERROR: failed to encode response data: %v", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	write(w, status, Envelope{StatusCode: status, Message: message, Data: data})
}

// WriteError writes a failure envelope. Data is omitted.
func WriteError(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{StatusCode: status, Message: message})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// Decode parses body as an envelope and unmarshals its data into out.
// out may be nil when the caller only needs to know the call succeeded.
// httpStatus is used when the body is not an envelope at all.
func Decode(httpStatus int, body []byte, out interface{}) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &Error{StatusCode: httpStatus, Message: fmt.Sprintf("malformed response: %v", err)}
	}
	if env.StatusCode == 0 {
		env.StatusCode = httpStatus
	}
	if !HasData(env) {
		return &Error{StatusCode: env.StatusCode, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// HasData reports whether the envelope carries a non-null payload.
func HasData(env Envelope) bool {
	trimmed := bytes.TrimSpace(env.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
