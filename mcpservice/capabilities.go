// Package mcpservice defines the capability surface a transport handler
// drives: server identity, instructions and the tools capability. The
// transport discovers capabilities per session and translates method calls on
// these interfaces into protocol messages.
//
// Conventions:
//   - Capability discovery returns (cap, ok, err); ok=false means the
//     capability is not supported, err is reserved for internal failures.
//   - Every method takes a context.Context and must honor cancellation.
//   - The sessions.Session value is the unit of isolation; implementations
//     must be safe for concurrent use.
package mcpservice

import (
	"context"

	"github.com/vvoland/dhimcp/mcp"
	"github.com/vvoland/dhimcp/sessions"
)

// ServerCapabilities is the root capability container a transport serves.
type ServerCapabilities interface {
	// GetServerInfo returns the implementation info surfaced in initialize
	// results. It may be called multiple times and should be cheap.
	GetServerInfo(ctx context.Context, session sessions.Session) (mcp.ImplementationInfo, error)

	// GetInstructions returns optional human-readable instructions included
	// in the initialize result. ok=false omits them.
	GetInstructions(ctx context.Context, session sessions.Session) (instructions string, ok bool, err error)

	// GetToolsCapability returns the tools capability for the session.
	// ok=false means the server does not expose tools to this session.
	GetToolsCapability(ctx context.Context, session sessions.Session) (cap ToolsCapability, ok bool, err error)
}

// ToolsCapability exposes the callable tool surface for a session.
type ToolsCapability interface {
	ListTools(ctx context.Context, session sessions.Session) ([]mcp.Tool, error)
	CallTool(ctx context.Context, session sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error)
}
