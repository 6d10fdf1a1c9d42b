package gateway

import (
	"errors"
	"mime"
	"strings"
)

// responseMode selects how a response is delivered.
type responseMode int

const (
	// modeJSON answers with a single application/json document.
	modeJSON responseMode = iota
	// modeSSE answers with an incremental text/event-stream.
	modeSSE
)

func (m responseMode) String() string {
	if m == modeSSE {
		return "text/event-stream"
	}
	return "application/json"
}

// errNotAcceptable means the client listed acceptable types and none of the
// supported modes is among them. This is the only case that may be refused;
// an absent or wildcard Accept header always falls back to the default, and
// the server's own declaration is always the union of both modes so a client
// accepting either one succeeds.
var errNotAcceptable = errors.New("gateway: no acceptable response mode; supported: application/json, text/event-stream")

// negotiateMode picks the response mode from the client's Accept header.
// A single supported type wins; both, a wildcard, or no header at all yield
// the configured default.
func negotiateMode(accept string, def responseMode) (responseMode, error) {
	accept = strings.TrimSpace(accept)
	if accept == "" {
		return def, nil
	}
	var json, sse, wildcard bool
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mediaType {
		case "application/json":
			json = true
		case "text/event-stream":
			sse = true
		case "*/*", "application/*", "text/*":
			wildcard = true
		}
	}
	switch {
	case json && !sse:
		return modeJSON, nil
	case sse && !json:
		return modeSSE, nil
	case json && sse, wildcard:
		return def, nil
	default:
		return def, errNotAcceptable
	}
}
