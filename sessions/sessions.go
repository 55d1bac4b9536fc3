// Package sessions defines the contracts a running tool sees: the session it
// executes within and the optional client capabilities reachable from it.
// Tool handlers receive a Session rather than touching any process-wide state,
// which keeps invocations independently testable.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/vvoland/dhimcp/elicitation"
)

// ErrNotSupported is returned when a tool asks for a capability the connected
// client did not advertise during initialization.
var ErrNotSupported = errors.New("sessions: capability not supported by client")

// ClientInfo identifies the client connected to the server.
type ClientInfo struct {
	Name    string
	Version string
}

// Session represents a negotiated session. Implementations must be safe for
// concurrent use; multiple tool invocations run against one session at a time.
type Session interface {
	SessionID() string
	// ProtocolVersion is the negotiated protocol version baked into the session.
	ProtocolVersion() string
	ClientInfo() ClientInfo

	GetElicitationCapability() (cap ElicitationCapability, ok bool)
}

// ElicitationCapability lets a tool suspend mid-call and ask the client for
// structured input.
//
// Call pattern:
//
//	outcome, err := cap.Elicit(ctx, "Proceed?", schema)
//	if err != nil { /* protocol failure; fail the tool call */ }
//	switch outcome.Action {
//	case elicitation.ActionAccept:  /* use outcome.Payload */
//	case elicitation.ActionDecline: /* user said no; not an error */
//	case elicitation.ActionCancel:  /* dismissed or timed out; not an error */
//	}
//
// A single invocation elicits sequentially, never concurrently with itself.
// Session closure and timeout both surface as a Cancelled outcome with a nil
// error so tools can answer conversationally; only protocol violations (a
// malformed or schema-violating accept) come back as errors.
type ElicitationCapability interface {
	// Elicit sends a form-mode elicitation described by schema and suspends
	// until the client responds or the session goes away.
	Elicit(ctx context.Context, message string, schema *elicitation.Schema, opts ...ElicitOption) (elicitation.Outcome, error)

	// ElicitURL sends a URL-mode elicitation: the client is asked to visit
	// the URL and acknowledge. An accepted outcome carries no payload.
	ElicitURL(ctx context.Context, message string, url string, opts ...ElicitOption) (elicitation.Outcome, error)
}

// ElicitOption configures one elicitation call.
type ElicitOption func(*ElicitConfig)

// ElicitConfig accumulates option settings for an elicitation call. Prefer the
// With* helpers over writing fields directly.
type ElicitConfig struct {
	Timeout time.Duration
}

// WithTimeout bounds how long the call waits for the client. When the
// deadline elapses the request is retired, any late response is discarded,
// and the outcome is Cancelled. Zero means wait until the session context
// decides.
func WithTimeout(d time.Duration) ElicitOption {
	return func(c *ElicitConfig) { c.Timeout = d }
}
