// Package sessioncore holds the concrete session implementation bound to a
// single transport connection.
package sessioncore

import (
	"github.com/vvoland/dhimcp/sessions"
)

// Session is the per-connection session handed to tool handlers.
type Session struct {
	id              string
	protocolVersion string
	clientInfo      sessions.ClientInfo
	elicit          sessions.ElicitationCapability
}

var _ sessions.Session = (*Session)(nil)

// Option configures a Session.
type Option func(*Session)

// WithClientInfo records the connected client's identity.
func WithClientInfo(info sessions.ClientInfo) Option {
	return func(s *Session) { s.clientInfo = info }
}

// WithElicitationCapability enables elicitation for the session. Sessions
// whose client did not advertise elicitation support leave this unset.
func WithElicitationCapability(cap sessions.ElicitationCapability) Option {
	return func(s *Session) { s.elicit = cap }
}

// New constructs a session with the given identity and negotiated protocol
// version.
func New(id, protocolVersion string, opts ...Option) *Session {
	s := &Session{id: id, protocolVersion: protocolVersion}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) SessionID() string               { return s.id }
func (s *Session) ProtocolVersion() string         { return s.protocolVersion }
func (s *Session) ClientInfo() sessions.ClientInfo { return s.clientInfo }

// GetElicitationCapability implements sessions.Session.
func (s *Session) GetElicitationCapability() (sessions.ElicitationCapability, bool) {
	if s.elicit == nil {
		return nil, false
	}
	return s.elicit, true
}
