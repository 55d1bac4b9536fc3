package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/vvoland/dhimcp/internal/jsonrpc"
	"github.com/vvoland/dhimcp/internal/outbound"
	"github.com/vvoland/dhimcp/internal/sessioncore"
	"github.com/vvoland/dhimcp/mcp"
	"github.com/vvoland/dhimcp/mcpservice"
	"github.com/vvoland/dhimcp/sessions"
)

// maxFrameSize bounds a single newline-delimited frame.
const maxFrameSize = 4 * 1024 * 1024

// Handler is a single-connection stdio transport.
type Handler struct {
	srv mcpservice.ServerCapabilities
	r   io.Reader
	w   io.Writer
	log *slog.Logger

	mux *writeMux

	disp *outbound.Dispatcher

	mu          sync.Mutex
	sess        *sessioncore.Session
	initialized bool
	inflight    map[string]context.CancelFunc

	served bool
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(srv mcpservice.ServerCapabilities, opts ...Option) *Handler {
	h := &Handler{
		srv:      srv,
		r:        os.Stdin,
		w:        os.Stdout,
		log:      slog.Default(),
		inflight: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.mux = newWriteMux(h.w)
	h.disp = outbound.New(&transport{mux: h.mux})
	return h
}

// Serve runs the event loop until EOF on the reader or context cancellation.
// It may be called at most once per Handler. On exit every pending outbound
// request is resolved as session-closed so no tool invocation stays blocked.
func (h *Handler) Serve(ctx context.Context) error {
	h.mu.Lock()
	if h.served {
		h.mu.Unlock()
		return errors.New("stdio: Serve called twice")
	}
	h.served = true
	h.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer h.shutdown()

	// Tear down the scanner loop when the context dies; closing is the only
	// way to unblock a Read on most readers.
	go func() {
		<-ctx.Done()
		if c, ok := h.r.(io.Closer); ok {
			_ = c.Close()
		}
	}()

	sc := bufio.NewScanner(h.r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg jsonrpc.AnyMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			h.log.Error("stdio.frame.parse.fail", slog.String("err", err.Error()))
			h.mux.write(jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, "parse error"))
			continue
		}

		if resp := msg.AsResponse(); resp != nil {
			// Correlated responses wake suspended elicitations; unmatched
			// ids are dropped by the dispatcher.
			h.disp.OnResponse(resp)
			continue
		}

		req := msg.AsRequest()
		if req.ID.IsNil() {
			h.handleNotification(req)
			continue
		}
		h.handleRequest(ctx, req)
	}

	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio: read: %w", err)
	}
	return nil
}

// shutdown resolves all pending outbound requests as closed and cancels any
// in-flight tool invocations.
func (h *Handler) shutdown() {
	h.disp.Close(nil)
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, cancel := range h.inflight {
		delete(h.inflight, id)
		cancel()
	}
}

func (h *Handler) handleNotification(req *jsonrpc.Request) {
	switch mcp.Method(req.Method) {
	case mcp.InitializedNotificationMethod:
		h.mu.Lock()
		h.initialized = true
		h.mu.Unlock()
	case mcp.CancelledNotificationMethod:
		var note mcp.CancelledNotification
		if err := json.Unmarshal(req.Params, &note); err != nil {
			h.log.Error("stdio.cancelled.parse.fail", slog.String("err", err.Error()))
			return
		}
		// The id may name an in-flight tool call or one of our own
		// outstanding elicitations; only one table will match.
		h.mu.Lock()
		cancel := h.inflight[note.RequestID]
		h.mu.Unlock()
		if cancel != nil {
			cancel()
			return
		}
		h.disp.OnCancelled(&note)
	default:
		h.log.Debug("stdio.notification.unknown", slog.String("method", req.Method))
	}
}

func (h *Handler) handleRequest(ctx context.Context, req *jsonrpc.Request) {
	switch mcp.Method(req.Method) {
	case mcp.InitializeMethod:
		h.handleInitialize(ctx, req)
	case mcp.PingMethod:
		h.respondResult(req.ID, mcp.EmptyResult{})
	case mcp.ToolsListMethod:
		h.handleToolsList(ctx, req)
	case mcp.ToolsCallMethod:
		h.handleToolsCall(ctx, req)
	default:
		h.respondError(req.ID, jsonrpc.ErrorCodeMethodNotFound, "method not found: "+req.Method)
	}
}

func (h *Handler) handleInitialize(ctx context.Context, req *jsonrpc.Request) {
	var init mcp.InitializeRequest
	if err := json.Unmarshal(req.Params, &init); err != nil {
		h.respondError(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid initialize params")
		return
	}

	version := init.ProtocolVersion
	if version == "" {
		version = mcp.LatestProtocolVersion
	}

	sessID := uuid.NewString()
	sessOpts := []sessioncore.Option{
		sessioncore.WithClientInfo(clientInfoFrom(init.ClientInfo)),
	}
	if init.Capabilities.Elicitation != nil {
		cap := sessioncore.NewElicitationCapability(h.disp, h.log, sessID)
		sessOpts = append(sessOpts, sessioncore.WithElicitationCapability(cap))
	}
	sess := sessioncore.New(sessID, version, sessOpts...)

	h.mu.Lock()
	h.sess = sess
	h.mu.Unlock()

	info, err := h.srv.GetServerInfo(ctx, sess)
	if err != nil {
		h.respondError(req.ID, jsonrpc.ErrorCodeInternalError, err.Error())
		return
	}

	var caps mcp.ServerCapabilities
	if _, ok, err := h.srv.GetToolsCapability(ctx, sess); err == nil && ok {
		caps.Tools = &struct {
			ListChanged bool `json:"listChanged"`
		}{}
	}

	result := mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    caps,
		ServerInfo:      info,
	}
	if instr, ok, err := h.srv.GetInstructions(ctx, sess); err == nil && ok {
		result.Instructions = instr
	}

	h.log.Info("stdio.session.initialize",
		slog.String("session_id", sessID),
		slog.String("client", init.ClientInfo.Name),
		slog.Bool("elicitation", init.Capabilities.Elicitation != nil))
	h.respondResult(req.ID, result)
}

func (h *Handler) handleToolsList(ctx context.Context, req *jsonrpc.Request) {
	sess, ok := h.session()
	if !ok {
		h.respondError(req.ID, jsonrpc.ErrorCodeInvalidRequest, "session not initialized")
		return
	}
	toolsCap, ok, err := h.srv.GetToolsCapability(ctx, sess)
	if err != nil {
		h.respondError(req.ID, jsonrpc.ErrorCodeInternalError, err.Error())
		return
	}
	if !ok {
		h.respondError(req.ID, jsonrpc.ErrorCodeMethodNotFound, "tools not supported")
		return
	}
	tools, err := toolsCap.ListTools(ctx, sess)
	if err != nil {
		h.respondError(req.ID, jsonrpc.ErrorCodeInternalError, err.Error())
		return
	}
	h.respondResult(req.ID, mcp.ListToolsResult{Tools: tools})
}

func (h *Handler) handleToolsCall(ctx context.Context, req *jsonrpc.Request) {
	sess, ok := h.session()
	if !ok {
		h.respondError(req.ID, jsonrpc.ErrorCodeInvalidRequest, "session not initialized")
		return
	}
	toolsCap, ok, err := h.srv.GetToolsCapability(ctx, sess)
	if err != nil || !ok {
		h.respondError(req.ID, jsonrpc.ErrorCodeMethodNotFound, "tools not supported")
		return
	}

	var call mcp.CallToolRequestReceived
	if err := json.Unmarshal(req.Params, &call); err != nil {
		h.respondError(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid tools/call params")
		return
	}

	// Each tool call runs on its own goroutine so a tool suspended in an
	// elicitation cannot starve the read loop of the response it is
	// waiting for.
	callCtx, cancel := context.WithCancel(ctx)
	key := req.ID.String()
	h.mu.Lock()
	h.inflight[key] = cancel
	h.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			h.mu.Lock()
			delete(h.inflight, key)
			h.mu.Unlock()
		}()

		result, err := toolsCap.CallTool(callCtx, sess, &call)
		if err != nil {
			h.log.Error("stdio.tool.call.fail",
				slog.String("tool", call.Name),
				slog.String("err", err.Error()))
			h.respondError(req.ID, jsonrpc.ErrorCodeInternalError, err.Error())
			return
		}
		h.respondResult(req.ID, result)
	}()
}

func (h *Handler) session() (*sessioncore.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sess == nil {
		return nil, false
	}
	return h.sess, true
}

func (h *Handler) respondResult(id *jsonrpc.RequestID, result any) {
	resp, err := jsonrpc.NewResultResponse(id, result)
	if err != nil {
		h.log.Error("stdio.respond.marshal.fail", slog.String("err", err.Error()))
		resp = jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInternalError, "failed to marshal result")
	}
	if err := h.mux.write(resp); err != nil {
		h.log.Error("stdio.respond.write.fail", slog.String("err", err.Error()))
	}
}

func (h *Handler) respondError(id *jsonrpc.RequestID, code jsonrpc.ErrorCode, message string) {
	if err := h.mux.write(jsonrpc.NewErrorResponse(id, code, message)); err != nil {
		h.log.Error("stdio.respond.write.fail", slog.String("err", err.Error()))
	}
}

func clientInfoFrom(info mcp.ImplementationInfo) sessions.ClientInfo {
	return sessions.ClientInfo{Name: info.Name, Version: info.Version}
}
