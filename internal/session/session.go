package session

import (
	"encoding/json"
	"sync"

	"github.com/segmentio/ksuid"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-ada-lsp/internal/completion"
	"github.com/CWBudde/go-ada-lsp/internal/jsonrpc"
)

var log = commonlog.GetLogger("ada-lsp.session")

// Recognized methods.
const (
	MethodInitialize = "initialize"
	MethodShutdown   = "shutdown"
	MethodExit       = "exit"
	MethodCompletion = "textDocument/completion"
)

// Error messages returned for lifecycle violations.
const (
	MsgNotInitialized     = "server not initialized"
	MsgAlreadyInitialized = "server is already initialized"
	MsgShuttingDown       = "server is shutting down"
	MsgAlreadyShutdown    = "server is already shutting down"
	MsgTerminated         = "session terminated"
	MsgMissingID          = "missing 'id' field"
)

// Options configure what a session advertises.
type Options struct {
	// ServerName and ServerVersion are reported in the initialize result.
	ServerName    string
	ServerVersion string

	// TriggerCharacters are the completion trigger characters.
	TriggerCharacters []string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		ServerName:        "go-ada-lsp",
		ServerVersion:     "0.1.0",
		TriggerCharacters: []string{"."},
	}
}

// Session is the protocol state machine of one connection.
// Messages must be handled one at a time in arrival order; the accessors are
// safe to call from other goroutines.
type Session struct {
	id     string
	engine *completion.Engine
	opts   Options

	// clientName is taken from the initialize request, for logging
	clientName string

	// initialized and shuttingDown only ever go from false to true,
	// and shuttingDown implies initialized.
	initialized  bool
	shuttingDown bool
	terminated   bool
	exit         ExitStatus

	mu sync.RWMutex
}

// New creates an uninitialized session answering completions from engine.
func New(engine *completion.Engine, opts Options) *Session {
	if opts.TriggerCharacters == nil {
		opts.TriggerCharacters = DefaultOptions().TriggerCharacters
	}

	return &Session{
		id:     ksuid.New().String(),
		engine: engine,
		opts:   opts,
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state()
}

// state must be called with s.mu held.
func (s *Session) state() State {
	switch {
	case s.terminated:
		return Terminated
	case s.shuttingDown:
		return ShuttingDown
	case s.initialized:
		return Initialized
	default:
		return Uninitialized
	}
}

// Initialized reports whether initialize has succeeded.
// It stays true through shutdown and termination.
func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.initialized
}

// ShuttingDown reports whether shutdown has been accepted.
func (s *Session) ShuttingDown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.shuttingDown
}

// ExitStatus reports how the session ended, or ExitNone while it is live.
func (s *Session) ExitStatus() ExitStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.exit
}

// Handle processes one raw message and returns the encoded response.
// The response is nil for exit, which is a notification. terminated is true
// once the session has ended and the connection should be closed.
func (s *Session) Handle(raw []byte) (response []byte, terminated bool) {
	req, rpcErr := jsonrpc.DecodeRequest(raw)
	if rpcErr != nil {
		log.Warningf("[%s] malformed message: %s", s.id, rpcErr.Message)
		return s.encodeError(rpcErr), s.State() == Terminated
	}

	if req.Method == MethodExit {
		s.terminate()
		return nil, true
	}

	result, rpcErr := s.Dispatch(req)
	if rpcErr != nil {
		log.Infof("[%s] %s rejected: %s", s.id, req.Method, rpcErr.Message)
		return s.encodeError(rpcErr), s.State() == Terminated
	}

	data, err := jsonrpc.EncodeResult(req.ID, result)
	if err != nil {
		log.Errorf("[%s] %s: %v", s.id, req.Method, err)
		return s.encodeError(jsonrpc.NewError(req.ID, jsonrpc.CodeInternalError, "%v", err)), false
	}

	return data, false
}

// Dispatch validates req against the current state and runs its handler.
// exit is handled by Handle, since it produces no response.
func (s *Session) Dispatch(req *jsonrpc.Request) (any, *jsonrpc.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return nil, jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidRequest, MsgTerminated)
	}

	if req.IsNotification() {
		return nil, jsonrpc.NewError(nil, jsonrpc.CodeInvalidRequest, MsgMissingID)
	}

	switch req.Method {
	case MethodInitialize:
		return s.initialize(req)
	case MethodShutdown:
		return s.shutdown(req)
	}

	if !s.initialized {
		return nil, jsonrpc.NewError(req.ID, jsonrpc.CodeServerNotInitialized, MsgNotInitialized)
	}

	if s.shuttingDown {
		return nil, jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidRequest, MsgShuttingDown)
	}

	switch req.Method {
	case MethodCompletion:
		return s.complete(req)
	default:
		return nil, jsonrpc.NewError(req.ID, jsonrpc.CodeMethodNotFound, "The method %s does not exist.", req.Method)
	}
}

// initialize must be called with s.mu held.
func (s *Session) initialize(req *jsonrpc.Request) (any, *jsonrpc.Error) {
	if s.initialized {
		return nil, jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidRequest, MsgAlreadyInitialized)
	}

	var params protocol.InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidParams, "invalid initialize params: %v", err)
		}
	}

	s.clientName = "unknown client"
	if params.ClientInfo != nil && params.ClientInfo.Name != "" {
		s.clientName = params.ClientInfo.Name
	}

	s.initialized = true
	log.Infof("[%s] initialized by %s", s.id, s.clientName)

	return s.initializeResult(), nil
}

func (s *Session) initializeResult() protocol.InitializeResult {
	triggers := make([]string, len(s.opts.TriggerCharacters))
	copy(triggers, s.opts.TriggerCharacters)

	version := s.opts.ServerVersion

	return protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: triggers,
			},
		},
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    s.opts.ServerName,
			Version: &version,
		},
	}
}

// shutdown must be called with s.mu held.
func (s *Session) shutdown(req *jsonrpc.Request) (any, *jsonrpc.Error) {
	if !s.initialized {
		return nil, jsonrpc.NewError(req.ID, jsonrpc.CodeServerNotInitialized, MsgNotInitialized)
	}

	if s.shuttingDown {
		return nil, jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidRequest, MsgAlreadyShutdown)
	}

	s.shuttingDown = true
	log.Infof("[%s] shutting down", s.id)

	return nil, nil
}

// complete must be called with s.mu held.
func (s *Session) complete(req *jsonrpc.Request) (any, *jsonrpc.Error) {
	query, err := completion.ParseParams(req.Params)
	if err != nil {
		return nil, jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidParams, "%v", err)
	}

	candidates := s.engine.Complete(query.PartialText, query.Context)

	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        completion.Items(candidates),
	}, nil
}

func (s *Session) terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return
	}

	if s.shuttingDown {
		s.exit = ExitGraceful
	} else {
		s.exit = ExitForced
	}

	log.Infof("[%s] exit from %s state (%s)", s.id, s.state(), s.exit)
	s.terminated = true
}

func (s *Session) encodeError(e *jsonrpc.Error) []byte {
	data, err := jsonrpc.EncodeError(e)
	if err != nil {
		// An error object of an int and a string always encodes.
		log.Errorf("[%s] encode error response: %v", s.id, err)
		return nil
	}

	return data
}
