// Package protocol defines the subscription protocol envelope exchanged with
// connected clients. The envelope is transport-agnostic; the websocket server
// maps frames onto it.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Actions a client may request.
const (
	ActionSubscribe   = "eventStream.subscribe"
	ActionUnsubscribe = "eventStream.unsubscribe"
)

// Event names used for server-to-client frames.
const (
	EventStream = "eventStream"
	EventError  = "error"
)

// Request is a client subscription-protocol message.
type Request struct {
	Type       string          `json:"type"`
	ID         *ID             `json:"id,omitempty"`
	SourceName string          `json:"sourceName"`
	Candy      json.RawMessage `json:"candy,omitempty"`
}

// HasCandy reports whether the candy flag was present (any non-null value).
func (r *Request) HasCandy() bool {
	return len(r.Candy) > 0 && string(r.Candy) != "null"
}

// ParseRequest parses a protocol request from a raw frame.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("malformed request: %w", err)
	}
	if req.Type == "" {
		return nil, fmt.Errorf("missing request type")
	}
	return &req, nil
}

// Ack is the success response to a subscribe/unsubscribe request.
type Ack struct {
	ID      *ID    `json:"id"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the structured error reported back to the requesting
// connection. Protocol errors never crash the broker.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// Frame is one server-to-client message.
type Frame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// ID is a request correlation id: a JSON string or number.
type ID struct {
	value any // string or int64
}

// StringID creates an ID from a string.
func StringID(s string) *ID {
	return &ID{value: s}
}

// NumberID creates an ID from an integer.
func NumberID(n int64) *ID {
	return &ID{value: n}
}

// String returns the ID for logging.
func (id *ID) String() string {
	if id == nil {
		return "<nil>"
	}
	switch v := id.value.(type) {
	case string:
		return v
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Valid reports whether the ID holds a string or number.
func (id *ID) Valid() bool {
	if id == nil {
		return false
	}
	switch id.value.(type) {
	case string, int64:
		return true
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (id *ID) MarshalJSON() ([]byte, error) {
	if id == nil {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		id.value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		id.value = s
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		id.value = n
		return nil
	}

	// JSON numbers may arrive as floats.
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		id.value = int64(f)
		return nil
	}

	id.value = json.RawMessage(data)
	return nil
}
