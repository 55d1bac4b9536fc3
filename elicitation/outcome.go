package elicitation

import (
	"errors"
	"fmt"

	"github.com/vvoland/dhimcp/mcp"
)

// Action is the client's chosen action for an elicitation.
type Action string

const (
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
	ActionCancel  Action = "cancel"
)

// ErrMalformedResponse marks a response the client should never have sent:
// an unrecognized action, or an accepted payload that violates the schema the
// client was shown. It is a protocol error, distinct from a decline or cancel.
var ErrMalformedResponse = errors.New("elicitation: malformed response")

// Outcome is the tri-state result of an elicitation. Payload is non-nil only
// for an accepted form elicitation; declined and cancelled outcomes never
// carry data, and a URL-mode accept is an acknowledgement only.
type Outcome struct {
	Action  Action
	Payload map[string]any
}

// Accepted reports whether the client accepted the request.
func (o Outcome) Accepted() bool { return o.Action == ActionAccept }

// Resolve classifies a raw elicitation response against the originating
// schema. A nil schema means the request was URL-mode and an accept carries no
// payload. Decline and cancel ignore any content the client supplied. An
// accepted payload is validated before being exposed; a violation fails the
// elicitation with ErrMalformedResponse wrapping the SchemaViolation detail.
func Resolve(schema *Schema, res *mcp.ElicitResult) (Outcome, error) {
	if res == nil {
		return Outcome{}, fmt.Errorf("%w: missing result", ErrMalformedResponse)
	}
	switch res.Action {
	case mcp.ElicitActionDecline:
		return Outcome{Action: ActionDecline}, nil
	case mcp.ElicitActionCancel:
		return Outcome{Action: ActionCancel}, nil
	case mcp.ElicitActionAccept:
		if schema == nil {
			return Outcome{Action: ActionAccept}, nil
		}
		content := res.Content
		if content == nil {
			content = map[string]any{}
		}
		if err := schema.Validate(content); err != nil {
			return Outcome{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		payload := make(map[string]any, len(content))
		for k, v := range content {
			payload[k] = v
		}
		return Outcome{Action: ActionAccept, Payload: payload}, nil
	default:
		return Outcome{}, fmt.Errorf("%w: unknown action %q", ErrMalformedResponse, res.Action)
	}
}
