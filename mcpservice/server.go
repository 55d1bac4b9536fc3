package mcpservice

import (
	"context"

	"github.com/vvoland/dhimcp/mcp"
	"github.com/vvoland/dhimcp/sessions"
)

// ServerOption configures the ServerCapabilities built by NewServer.
type ServerOption func(*server)

type server struct {
	info         mcp.ImplementationInfo
	instructions *string
	toolsCap     ToolsCapability
}

var _ ServerCapabilities = (*server)(nil)

// NewServer builds a ServerCapabilities from functional options.
func NewServer(opts ...ServerOption) ServerCapabilities {
	s := &server{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithServerInfo sets the static server identity.
func WithServerInfo(info mcp.ImplementationInfo) ServerOption {
	return func(s *server) { s.info = info }
}

// WithInstructions sets static instructions returned during initialize.
func WithInstructions(instr string) ServerOption {
	return func(s *server) { s.instructions = &instr }
}

// WithToolsCapability wires a static ToolsCapability used for all sessions.
func WithToolsCapability(cap ToolsCapability) ServerOption {
	return func(s *server) { s.toolsCap = cap }
}

func (s *server) GetServerInfo(ctx context.Context, _ sessions.Session) (mcp.ImplementationInfo, error) {
	return s.info, nil
}

func (s *server) GetInstructions(ctx context.Context, _ sessions.Session) (string, bool, error) {
	if s.instructions == nil {
		return "", false, nil
	}
	return *s.instructions, true, nil
}

func (s *server) GetToolsCapability(ctx context.Context, _ sessions.Session) (ToolsCapability, bool, error) {
	if s.toolsCap == nil {
		return nil, false, nil
	}
	return s.toolsCap, true, nil
}
