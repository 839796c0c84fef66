// Package jsonrpc encodes and decodes JSON-RPC 2.0 envelopes.
//
// Decoding never panics and never returns a bare Go error for bad input:
// every failure is an *Error carrying a JSON-RPC code and, when it could be
// recovered from the input, the id of the offending request.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ada-lsp.jsonrpc")

// Version is the only supported protocol version.
const Version = "2.0"

// JSON-RPC error codes.
const (
	CodeParseError     int64 = jsonrpc2.CodeParseError
	CodeInvalidRequest int64 = jsonrpc2.CodeInvalidRequest
	CodeMethodNotFound int64 = jsonrpc2.CodeMethodNotFound
	CodeInvalidParams  int64 = jsonrpc2.CodeInvalidParams
	CodeInternalError  int64 = jsonrpc2.CodeInternalError

	// CodeServerNotInitialized is the LSP code for requests sent before initialize.
	CodeServerNotInitialized int64 = -32002
)

// Request is a decoded request or notification.
type Request struct {
	Method string
	ID     *ID // nil for notifications
	Params json.RawMessage
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Error is a protocol error bound to the request id it answers.
type Error struct {
	ID      *ID // nil when the id could not be determined
	Code    int64
	Message string
}

// NewError creates an error answering id.
func NewError(id *ID, code int64, format string, args ...any) *Error {
	return &Error{ID: id, Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc2: code %d message: %s", e.Code, e.Message)
}

// Object returns the wire error object.
func (e *Error) Object() *jsonrpc2.Error {
	return &jsonrpc2.Error{Code: e.Code, Message: e.Message}
}

type wireRequest struct {
	JSONRPC *string         `json:"jsonrpc"`
	Method  *string         `json:"method"`
	ID      json.RawMessage `json:"id"`
	Params  json.RawMessage `json:"params"`
}

// DecodeRequest decodes one request envelope.
// The id is extracted before any other field is validated, so errors about
// the version or method still answer the right request.
func DecodeRequest(raw []byte) (*Request, *Error) {
	if !json.Valid(raw) {
		return nil, NewError(nil, CodeParseError, "invalid JSON data")
	}

	var wire wireRequest

	// A type mismatch on one field still fills the others, so the id survives.
	decodeErr := json.Unmarshal(raw, &wire)

	id, idErr := decodeID(wire.ID)
	if idErr != nil {
		log.Debugf("rejected id %s", wire.ID)
		return nil, NewError(nil, CodeInvalidRequest, "%v", idErr)
	}

	if decodeErr != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(decodeErr, &typeErr) && typeErr.Field != "" {
			return nil, NewError(id, CodeInvalidRequest, "invalid '%s' field", typeErr.Field)
		}

		return nil, NewError(id, CodeInvalidRequest, "request must be a JSON object")
	}

	if wire.JSONRPC == nil || *wire.JSONRPC != Version {
		return nil, NewError(id, CodeInvalidRequest, "invalid JSON-RPC version")
	}

	if wire.Method == nil {
		return nil, NewError(id, CodeInvalidRequest, "missing 'method' field")
	}

	params := wire.Params
	if isNull(params) {
		params = nil
	}

	return &Request{Method: *wire.Method, ID: id, Params: params}, nil
}

// decodeID returns nil for an absent or null id.
func decodeID(raw json.RawMessage) (*ID, error) {
	if isNull(raw) {
		return nil, nil
	}

	var id ID
	if err := id.UnmarshalJSON(raw); err != nil {
		return nil, err
	}

	return &id, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
