package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sourcegraph/jsonrpc2"
)

// Response is a success or error envelope.
// Exactly one of Result and Error is meaningful: a nil Error means success.
type Response struct {
	ID     *ID
	Result json.RawMessage
	Error  *jsonrpc2.Error
}

type wireResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *ID              `json:"id"`
	Result  *json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpc2.Error  `json:"error,omitempty"`
}

// MarshalJSON always writes the id (null when unknown) and exactly one of
// result and error. A success without a result value carries "result": null.
func (r Response) MarshalJSON() ([]byte, error) {
	wire := wireResponse{JSONRPC: Version, ID: r.ID}

	if r.Error != nil {
		wire.Error = r.Error
	} else {
		result := r.Result
		if len(result) == 0 {
			result = json.RawMessage("null")
		}

		wire.Result = &result
	}

	return json.Marshal(wire)
}

// EncodeResult encodes a success response carrying result.
func EncodeResult(id *ID, result any) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	return json.Marshal(Response{ID: id, Result: data})
}

// EncodeError encodes an error response for e.
func EncodeError(e *Error) ([]byte, error) {
	return json.Marshal(Response{ID: e.ID, Error: e.Object()})
}

// EncodeRequest encodes a request, or a notification when id is nil.
func EncodeRequest(id *ID, method string, params any) ([]byte, error) {
	req := struct {
		JSONRPC string `json:"jsonrpc"`
		ID      *ID    `json:"id,omitempty"`
		Method  string `json:"method"`
		Params  any    `json:"params,omitempty"`
	}{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
		Params:  params,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request %s: %w", method, err)
	}

	return data, nil
}

// ErrMalformedResponse is returned when a response has neither result nor error.
var ErrMalformedResponse = errors.New("response has neither result nor error")

// DecodeResponse decodes a response envelope.
func DecodeResponse(raw []byte) (*Response, error) {
	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if wire.JSONRPC != Version {
		return nil, fmt.Errorf("decode response: unsupported version %q", wire.JSONRPC)
	}

	resp := &Response{ID: wire.ID, Error: wire.Error}

	switch {
	case wire.Error != nil:
	case wire.Result != nil:
		resp.Result = *wire.Result
	default:
		// "result": null decodes to a nil pointer; only an absent key is malformed.
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(raw, &keys); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}

		if _, ok := keys["result"]; !ok {
			return nil, ErrMalformedResponse
		}

		resp.Result = json.RawMessage("null")
	}

	return resp, nil
}
