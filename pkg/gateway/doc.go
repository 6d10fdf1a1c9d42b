// Package gateway serves a tool registry over MCP streamable HTTP with
// in-memory, idle-expiring sessions. The session id header is matched
// case-insensitively and echoed under both common spellings, and the
// endpoint accepts either JSON or event-stream responses, so inconsistent
// clients keep working.
package gateway
