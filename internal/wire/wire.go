// Package wire implements the TCP command protocol (§6): tagged JSON
// commands dispatched to the pipeline and dataframe handlers (Column,
// Database, Project and View commands are answered with
// WIRE_UNSUPPORTED_DOMAIN), with numeric column payloads carried as Apache
// Arrow IPC streams rather than JSON arrays.
package wire

import (
	"errors"
	"fmt"

	"fastprop/pkg/errs"

	"github.com/goccy/go-json"
)

// Envelope is the outer tagged-union shape every inbound command shares: a
// string discriminator plus a raw payload the handler for that
// discriminator re-unmarshals into its own concrete type.
type Envelope struct {
	Type    string          `json:"type_"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response mirrors the three shapes §6 allows: a bare status string, a
// status plus a JSON payload, or an error string. ArrowPayload is never
// JSON-marshaled — when set, the server writes the status line without a
// Payload field, then the raw Arrow IPC bytes length-prefixed on their own
// (see server.go's writeResponse and arrow.go).
type Response struct {
	Status       string          `json:"status"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Error        string          `json:"error,omitempty"`
	ArrowPayload []byte          `json:"-"`
}

const (
	StatusSuccess = "Success!"
	StatusFound   = "Found!"
)

// OK builds a bare-success response.
func OK() Response { return Response{Status: StatusSuccess} }

// Found builds a success-with-payload response, JSON-encoding payload with
// the wire codec.
func Found(payload any) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, err
	}
	return Response{Status: StatusFound, Payload: body}, nil
}

// Fail builds an error response from err.
func Fail(err error) Response {
	var e *errs.Error
	if errors.As(err, &e) && !e.ClientSafe() {
		return Response{Status: "Error", Error: "internal error"}
	}
	return Response{Status: "Error", Error: err.Error()}
}

// ParseEnvelope decodes the outer tagged command.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("wire: malformed envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("wire: envelope missing type_ discriminator")
	}
	return env, nil
}
