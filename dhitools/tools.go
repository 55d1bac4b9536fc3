// Package dhitools assembles the server's tool set: the Docker Hardened
// Images migration helper plus the interactive tools that gather input from
// the connected user via elicitation mid-call.
package dhitools

import (
	"time"

	"github.com/vvoland/dhimcp/internal/docstore"
	"github.com/vvoland/dhimcp/mcpservice"
	"github.com/vvoland/dhimcp/sessions"
)

// Option configures the tool set.
type Option func(*toolset)

// WithElicitTimeout bounds every elicitation round trip issued by the tools.
// Zero waits indefinitely (until the session goes away).
func WithElicitTimeout(d time.Duration) Option {
	return func(t *toolset) { t.elicitTimeout = d }
}

type toolset struct {
	docs          *docstore.Store
	elicitTimeout time.Duration
}

// New builds the tools capability backed by the given doc store.
func New(docs *docstore.Store, opts ...Option) mcpservice.ToolsCapability {
	t := &toolset{docs: docs}
	for _, opt := range opts {
		opt(t)
	}
	return mcpservice.NewStaticTools(
		t.migrationInfoTool(),
		t.confirmActionTool(),
		t.createUserTool(),
		t.configureSettingsTool(),
		t.setupPreferencesTool(),
		t.selectOptionTool(),
		t.visitDocumentationTool(),
	)
}

func (t *toolset) elicitOpts() []sessions.ElicitOption {
	if t.elicitTimeout <= 0 {
		return nil
	}
	return []sessions.ElicitOption{sessions.WithTimeout(t.elicitTimeout)}
}

// elicitCapability returns the session's elicitation capability or nil when the
// client did not advertise support. Callers surface the nil case as a
// conversational error result rather than failing the call.
func elicitCapability(session sessions.Session) sessions.ElicitationCapability {
	cap, ok := session.GetElicitationCapability()
	if !ok {
		return nil
	}
	return cap
}

const noElicitationSupport = "This tool needs to ask you for input, but the connected client does not support elicitation."
