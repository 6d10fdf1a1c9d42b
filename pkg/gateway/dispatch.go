package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/edpreble/mcp-wp/pkg/toolreg"
)

// The session header is matched case-insensitively on the way in and echoed
// under both observed spellings on the way out, so clients reading either
// one succeed. Go canonicalizes header keys on Set; the lowercase variant is
// written through the header map directly to keep its spelling.
const (
	sessionHeaderCanonical = "Mcp-Session-Id"
	sessionHeaderLower     = "mcp-session-id"
)

func sessionIDFromRequest(h http.Header) string {
	if v := h.Get(sessionHeaderCanonical); v != "" {
		return v
	}
	for key, values := range h {
		if strings.EqualFold(key, sessionHeaderCanonical) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func setSessionHeaders(h http.Header, id string) {
	h.Set(sessionHeaderCanonical, id)
	h[sessionHeaderLower] = []string{id}
}

// handleMCP is the protocol entry point. One instance of this pipeline
// serves every request of every session for the lifetime of the process.
func (g *Gateway) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	case http.MethodPost:
		g.handlePost(w, r)
	case http.MethodDelete:
		g.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE, OPTIONS")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) handlePost(w http.ResponseWriter, r *http.Request) {
	mode, negErr := negotiateMode(r.Header.Get("Accept"), g.opts.defaultMode())
	if negErr != nil {
		writeJSON(w, http.StatusNotAcceptable, errorResponse(nil, codeInvalidRequest, negErr.Error()))
		return
	}
	if !g.authorize(w, r) {
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeResponse(w, mode, "", errorResponse(nil, codeParseError, "malformed JSON-RPC request"))
		return
	}

	sessionID, created, err := g.sessions.resolveOrCreate(sessionIDFromRequest(r.Header))
	if err != nil {
		// 404 tells the client the conversation is gone; it must
		// re-initialize rather than keep the stale id.
		writeJSON(w, http.StatusNotFound, errorResponse(req.ID, codeInvalidRequest, "unknown or expired session; restart the conversation"))
		return
	}
	if created {
		g.logger.Info("session created", "session", sessionID, "method", req.Method)
	}

	if req.isNotification() {
		setSessionHeaders(w.Header(), sessionID)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	resp := g.dispatch(r.Context(), &req)
	setSessionHeaders(w.Header(), sessionID)
	g.writeResponse(w, mode, sessionID, resp)
}

func (g *Gateway) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !g.authorize(w, r) {
		return
	}
	id := sessionIDFromRequest(r.Header)
	if id == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}
	if _, _, err := g.sessions.resolveOrCreate(id); err != nil {
		http.Error(w, "unknown or expired session", http.StatusNotFound)
		return
	}
	g.sessions.close(id)
	g.logger.Info("session closed", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

// authorize enforces the optional bearer token. With no token configured the
// endpoint is open; that is a deliberate trade-off for local use, not an
// oversight.
func (g *Gateway) authorize(w http.ResponseWriter, r *http.Request) bool {
	if g.opts.BearerToken == "" {
		return true
	}
	auth := r.Header.Get("Authorization")
	if auth == "Bearer "+g.opts.BearerToken {
		return true
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSON(w, http.StatusUnauthorized, errorResponse(nil, codeInvalidRequest, "missing or invalid bearer token"))
	return false
}

// dispatch routes one validated request to its method handler. Panics from
// handlers are caught here so a single bad request can never take the
// process down.
func (g *Gateway) dispatch(ctx context.Context, req *rpcRequest) (resp *rpcResponse) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Error("panic while handling request", "method", req.Method, "panic", rec)
			resp = errorResponse(req.ID, codeInternalError, "internal error")
		}
	}()

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      g.opts.Implementation,
		})
	case "ping":
		return resultResponse(req.ID, struct{}{})
	case "tools/list":
		return resultResponse(req.ID, listToolsResult{Tools: g.registry.Tools()})
	case "tools/call":
		return g.callTool(ctx, req)
	default:
		return errorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method)
	}
}

func (g *Gateway) callTool(ctx context.Context, req *rpcRequest) *rpcResponse {
	var params callToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return errorResponse(req.ID, codeInvalidParams, "tools/call requires a tool name and arguments")
	}

	args, err := g.registry.Validate(params.Name, params.Arguments)
	if err != nil {
		var invalid *toolreg.InvalidArgumentError
		switch {
		case errors.Is(err, toolreg.ErrUnknownTool):
			return errorResponse(req.ID, codeInvalidParams, "unknown tool: "+params.Name)
		case errors.As(err, &invalid):
			return errorResponse(req.ID, codeInvalidParams, invalid.Error())
		default:
			g.logger.Error("tool validation failed", "tool", params.Name, "error", err)
			return errorResponse(req.ID, codeInternalError, "internal error")
		}
	}

	reg, err := g.registry.Resolve(params.Name)
	if err != nil {
		return errorResponse(req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	result, err := reg.Handler(ctx, args)
	if err != nil {
		// Execution failures (remote API errors, empty patches) stay
		// inside the tool result rather than becoming protocol errors,
		// matching how MCP servers report failed tool runs.
		g.logger.Warn("tool call failed", "tool", params.Name, "error", err)
		result = &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		}
	}
	return resultResponse(req.ID, result)
}

func (g *Gateway) writeResponse(w http.ResponseWriter, mode responseMode, sessionID string, resp *rpcResponse) {
	var err error
	switch mode {
	case modeSSE:
		err = newSSEWriter(w).writeEvent(resp)
	default:
		err = writeJSON(w, http.StatusOK, resp)
	}
	if err != nil {
		g.logger.Error("writing response", "session", sessionID, "error", err)
	}
}
