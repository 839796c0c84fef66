package session

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CWBudde/go-ada-lsp/internal/completion"
	"github.com/CWBudde/go-ada-lsp/internal/jsonrpc"
	"github.com/CWBudde/go-ada-lsp/internal/symbols"
)

type testResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int64  `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type completionResult struct {
	Items []struct {
		Label  string `json:"label"`
		Kind   int    `json:"kind"`
		Detail string `json:"detail"`
	} `json:"items"`
}

func newTestSession(t *testing.T, decls ...symbols.Declaration) *Session {
	t.Helper()

	table := symbols.NewTable()
	table.AddAll(decls)

	return New(completion.NewEngine(table), DefaultOptions())
}

func seedDecls() []symbols.Declaration {
	return []symbols.Declaration{
		{Name: "print_hello", Category: symbols.CategoryProcedure, Scope: symbols.ScopeGlobal},
		{Name: "calculate_sum", Category: symbols.CategoryFunction, Scope: symbols.ScopeGlobal},
		{Name: "process_data", Category: symbols.CategoryProcedure, Scope: symbols.ScopeGlobal},
	}
}

// send handles a request with the given id and method and decodes the reply.
func send(t *testing.T, s *Session, id int, method string, params string) testResponse {
	t.Helper()

	raw := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":%q}`, id, method)
	if params != "" {
		raw = fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":%q,"params":%s}`, id, method, params)
	}

	return handleRaw(t, s, raw)
}

func handleRaw(t *testing.T, s *Session, raw string) testResponse {
	t.Helper()

	data, _ := s.Handle([]byte(raw))
	require.NotNil(t, data, "expected a response to %s", raw)

	var resp testResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "2.0", resp.JSONRPC)

	return resp
}

func requireError(t *testing.T, resp testResponse, code int64, message string) {
	t.Helper()

	require.NotNil(t, resp.Error, "expected error response, got result %s", resp.Result)
	assert.Equal(t, code, resp.Error.Code)
	assert.Equal(t, message, resp.Error.Message)
}

func requireSuccess(t *testing.T, resp testResponse) {
	t.Helper()

	require.Nil(t, resp.Error, "unexpected error %+v", resp.Error)
}

func decodeCompletion(t *testing.T, resp testResponse) completionResult {
	t.Helper()
	requireSuccess(t, resp)

	var result completionResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))

	return result
}

func TestSession_InitialState(t *testing.T) {
	s := newTestSession(t)

	assert.Equal(t, Uninitialized, s.State())
	assert.False(t, s.Initialized())
	assert.False(t, s.ShuttingDown())
	assert.Equal(t, ExitNone, s.ExitStatus())
	assert.NotEmpty(t, s.ID())
}

func TestSession_Initialize(t *testing.T) {
	s := newTestSession(t)

	resp := send(t, s, 1, MethodInitialize, `{"rootUri":"./"}`)
	requireSuccess(t, resp)
	assert.JSONEq(t, `1`, string(resp.ID))

	var result struct {
		Capabilities struct {
			CompletionProvider struct {
				TriggerCharacters []string `json:"triggerCharacters"`
			} `json:"completionProvider"`
		} `json:"capabilities"`
		ServerInfo struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))

	assert.Equal(t, []string{"."}, result.Capabilities.CompletionProvider.TriggerCharacters)
	assert.Equal(t, "go-ada-lsp", result.ServerInfo.Name)
	assert.Equal(t, "0.1.0", result.ServerInfo.Version)

	assert.Equal(t, Initialized, s.State())
	assert.True(t, s.Initialized())
}

func TestSession_InitializeTwice(t *testing.T) {
	s := newTestSession(t)

	requireSuccess(t, send(t, s, 1, MethodInitialize, `{}`))

	resp := send(t, s, 2, MethodInitialize, `{}`)
	requireError(t, resp, jsonrpc.CodeInvalidRequest, MsgAlreadyInitialized)
	assert.JSONEq(t, `2`, string(resp.ID))

	// The session keeps working with its original capabilities.
	assert.Equal(t, Initialized, s.State())
	requireSuccess(t, send(t, s, 3, MethodCompletion, `{}`))
}

func TestSession_InitializeInvalidParams(t *testing.T) {
	s := newTestSession(t)

	resp := send(t, s, 1, MethodInitialize, `"not an object"`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, Uninitialized, s.State())
}

func TestSession_CompletionBeforeInitialize(t *testing.T) {
	s := newTestSession(t, seedDecls()...)

	resp := send(t, s, 1, MethodCompletion, `{"partialText":"p"}`)
	requireError(t, resp, jsonrpc.CodeServerNotInitialized, MsgNotInitialized)
	assert.Nil(t, resp.Result)
}

func TestSession_UnknownMethodBeforeInitialize(t *testing.T) {
	s := newTestSession(t)

	resp := send(t, s, 1, "textDocument/hover", "")
	requireError(t, resp, jsonrpc.CodeServerNotInitialized, MsgNotInitialized)
}

func TestSession_ShutdownBeforeInitialize(t *testing.T) {
	s := newTestSession(t)

	resp := send(t, s, 1, MethodShutdown, "")
	requireError(t, resp, jsonrpc.CodeServerNotInitialized, MsgNotInitialized)
	assert.Equal(t, Uninitialized, s.State())
	assert.False(t, s.ShuttingDown())
}

func TestSession_Shutdown(t *testing.T) {
	s := newTestSession(t)
	requireSuccess(t, send(t, s, 1, MethodInitialize, `{}`))

	resp := send(t, s, 2, MethodShutdown, "")
	requireSuccess(t, resp)
	assert.JSONEq(t, `null`, string(resp.Result))

	assert.Equal(t, ShuttingDown, s.State())
	assert.True(t, s.ShuttingDown())
	assert.True(t, s.Initialized())

	resp = send(t, s, 3, MethodShutdown, "")
	requireError(t, resp, jsonrpc.CodeInvalidRequest, MsgAlreadyShutdown)
	assert.Equal(t, ShuttingDown, s.State())
}

func TestSession_RequestsWhileShuttingDown(t *testing.T) {
	s := newTestSession(t, seedDecls()...)
	requireSuccess(t, send(t, s, 1, MethodInitialize, `{}`))
	requireSuccess(t, send(t, s, 2, MethodShutdown, ""))

	resp := send(t, s, 3, MethodCompletion, `{"partialText":"p"}`)
	requireError(t, resp, jsonrpc.CodeInvalidRequest, MsgShuttingDown)

	resp = send(t, s, 4, "workspace/symbol", `{}`)
	requireError(t, resp, jsonrpc.CodeInvalidRequest, MsgShuttingDown)

	// initialize after shutdown is still "already initialized", never a restart.
	resp = send(t, s, 5, MethodInitialize, `{}`)
	requireError(t, resp, jsonrpc.CodeInvalidRequest, MsgAlreadyInitialized)
	assert.Equal(t, ShuttingDown, s.State())
}

func TestSession_Completion(t *testing.T) {
	s := newTestSession(t, seedDecls()...)
	requireSuccess(t, send(t, s, 1, MethodInitialize, `{}`))

	result := decodeCompletion(t, send(t, s, 2, MethodCompletion, `{"partialText":"p"}`))
	require.Len(t, result.Items, 2)
	assert.Equal(t, "print_hello", result.Items[0].Label)
	assert.Equal(t, "process_data", result.Items[1].Label)
	assert.Equal(t, "procedure print_hello (global)", result.Items[0].Detail)
	assert.Equal(t, 3, result.Items[0].Kind)

	result = decodeCompletion(t, send(t, s, 3, MethodCompletion,
		`{"text":"begin\n  calc","position":{"line":1,"character":6}}`))
	require.Len(t, result.Items, 1)
	assert.Equal(t, "calculate_sum", result.Items[0].Label)

	// A plain editor request lists everything visible.
	result = decodeCompletion(t, send(t, s, 4, MethodCompletion,
		`{"textDocument":{"uri":"file:///test.adb"},"position":{"line":0,"character":3},"context":{"triggerKind":1}}`))
	assert.Len(t, result.Items, 3)
}

func TestSession_CompletionEmpty(t *testing.T) {
	s := newTestSession(t)

	resp := send(t, s, 1, MethodInitialize, `{}`)
	requireSuccess(t, resp)

	resp = send(t, s, 2, MethodCompletion, `{"partialText":"","text":"procedure Main is begin null; end Main;"}`)
	requireSuccess(t, resp)
	assert.JSONEq(t, `{"isIncomplete":false,"items":[]}`, string(resp.Result))
}

func TestSession_CompletionInvalidParams(t *testing.T) {
	s := newTestSession(t, seedDecls()...)
	requireSuccess(t, send(t, s, 1, MethodInitialize, `{}`))

	resp := send(t, s, 2, MethodCompletion, `{"text":"abc","position":{"line":5,"character":0}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, Initialized, s.State())
}

func TestSession_UnknownMethod(t *testing.T) {
	s := newTestSession(t)
	requireSuccess(t, send(t, s, 1, MethodInitialize, `{}`))

	resp := send(t, s, 2, "textDocument/hover", `{}`)
	requireError(t, resp, jsonrpc.CodeMethodNotFound, "The method textDocument/hover does not exist.")
}

func TestSession_ExitAfterShutdownIsGraceful(t *testing.T) {
	s := newTestSession(t)
	requireSuccess(t, send(t, s, 1, MethodInitialize, `{}`))
	requireSuccess(t, send(t, s, 2, MethodShutdown, ""))

	data, terminated := s.Handle([]byte(`{"jsonrpc":"2.0","method":"exit"}`))
	assert.Nil(t, data)
	assert.True(t, terminated)

	assert.Equal(t, Terminated, s.State())
	assert.Equal(t, ExitGraceful, s.ExitStatus())
	assert.Equal(t, 0, s.ExitStatus().Code())
}

func TestSession_ExitWithoutShutdownIsForced(t *testing.T) {
	for _, initialize := range []bool{false, true} {
		t.Run(fmt.Sprintf("initialized=%v", initialize), func(t *testing.T) {
			s := newTestSession(t)
			if initialize {
				requireSuccess(t, send(t, s, 1, MethodInitialize, `{}`))
			}

			// exit sent with an id still gets no response.
			data, terminated := s.Handle([]byte(`{"jsonrpc":"2.0","id":9,"method":"exit"}`))
			assert.Nil(t, data)
			assert.True(t, terminated)

			assert.Equal(t, Terminated, s.State())
			assert.Equal(t, ExitForced, s.ExitStatus())
			assert.Equal(t, 1, s.ExitStatus().Code())
		})
	}
}

func TestSession_Terminated(t *testing.T) {
	s := newTestSession(t)
	requireSuccess(t, send(t, s, 1, MethodInitialize, `{}`))
	requireSuccess(t, send(t, s, 2, MethodShutdown, ""))

	_, terminated := s.Handle([]byte(`{"jsonrpc":"2.0","method":"exit"}`))
	require.True(t, terminated)

	data, terminated := s.Handle([]byte(`{"jsonrpc":"2.0","id":3,"method":"initialize"}`))
	assert.True(t, terminated)

	var resp testResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	requireError(t, resp, jsonrpc.CodeInvalidRequest, MsgTerminated)

	// A second exit changes nothing.
	data, terminated = s.Handle([]byte(`{"jsonrpc":"2.0","method":"exit"}`))
	assert.Nil(t, data)
	assert.True(t, terminated)
	assert.Equal(t, ExitGraceful, s.ExitStatus())
}

func TestSession_MalformedMessages(t *testing.T) {
	s := newTestSession(t)

	tests := []struct {
		name     string
		raw      string
		wantCode int64
		wantID   string
	}{
		{"invalid json", `{"jsonrpc": "2.0", "id": 1,`, jsonrpc.CodeParseError, `null`},
		{"wrong version", `{"jsonrpc":"1.0","id":7,"method":"initialize"}`, jsonrpc.CodeInvalidRequest, `7`},
		{"missing method", `{"jsonrpc":"2.0","id":"a"}`, jsonrpc.CodeInvalidRequest, `"a"`},
		{"missing id", `{"jsonrpc":"2.0","method":"initialize"}`, jsonrpc.CodeInvalidRequest, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := handleRaw(t, s, tt.raw)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.JSONEq(t, tt.wantID, string(resp.ID))
		})
	}

	// Malformed input never changes the state.
	assert.Equal(t, Uninitialized, s.State())
}

func TestSession_NegativeID(t *testing.T) {
	s := newTestSession(t, seedDecls()...)

	resp := handleRaw(t, s, `{"jsonrpc":"2.0","id":-1,"method":"initialize","params":{}}`)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `-1`, string(resp.ID))
	assert.Equal(t, Initialized, s.State())

	resp = handleRaw(t, s, `{"jsonrpc":"2.0","id":true,"method":"shutdown"}`)
	requireError(t, resp, jsonrpc.CodeInvalidRequest, "id must be an integer or string")
	assert.JSONEq(t, `null`, string(resp.ID))
	assert.Equal(t, Initialized, s.State())
}

func TestSession_CustomTriggerCharacters(t *testing.T) {
	opts := DefaultOptions()
	opts.TriggerCharacters = []string{".", "'"}

	s := New(completion.NewEngine(symbols.NewTable()), opts)

	resp := send(t, s, 1, MethodInitialize, `{}`)
	requireSuccess(t, resp)
	assert.Contains(t, string(resp.Result), `"triggerCharacters":[".","'"]`)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", Uninitialized.String())
	assert.Equal(t, "initialized", Initialized.String())
	assert.Equal(t, "shutting-down", ShuttingDown.String())
	assert.Equal(t, "terminated", Terminated.String())
	assert.Equal(t, "graceful", ExitGraceful.String())
	assert.Equal(t, "forced", ExitForced.String())
	assert.Equal(t, "none", ExitNone.String())
}
