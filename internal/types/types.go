// Package types defines the websocket gateway wire protocol. The gateway is
// a dumb pipe onto the document store: every operation a client sends is
// applied verbatim, and subscribed clients receive full-document snapshots.
package types

// Operation names accepted by the gateway.
const (
	OpGet         = "get"
	OpSet         = "set"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpCreate      = "create"
	OpList        = "list"
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
)

// Response types.
const (
	TypeResult   = "result"
	TypeSnapshot = "snapshot"
)

// ErrNotFound is the wire form of a missing document.
const ErrNotFound = "not_found"

// Request is a client -> gateway frame.
type Request struct {
	Op     string         `json:"op"`
	ID     string         `json:"id,omitempty"`
	Code   string         `json:"code,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Response is a gateway -> client frame: either the result of a request
// (matched by ID) or a pushed snapshot for a subscribed code.
type Response struct {
	Type    string                    `json:"type"`
	ID      string                    `json:"id,omitempty"`
	Code    string                    `json:"code,omitempty"`
	Exists  bool                      `json:"exists,omitempty"`
	Data    map[string]any            `json:"data,omitempty"`
	Records map[string]map[string]any `json:"records,omitempty"`
	Error   string                    `json:"error,omitempty"`
}
