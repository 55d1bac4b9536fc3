package sessioncore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vvoland/dhimcp/elicitation"
	"github.com/vvoland/dhimcp/internal/outbound"
	"github.com/vvoland/dhimcp/mcp"
	"github.com/vvoland/dhimcp/sessions"
)

// ElicitationCapability implements sessions.ElicitationCapability over the
// session's outbound dispatcher. One instance serves all tool invocations on
// the session; per-call state lives on the stack.
type ElicitationCapability struct {
	disp   *outbound.Dispatcher
	log    *slog.Logger
	sessID string
}

var _ sessions.ElicitationCapability = (*ElicitationCapability)(nil)

// NewElicitationCapability wires a capability to the session dispatcher.
func NewElicitationCapability(disp *outbound.Dispatcher, log *slog.Logger, sessID string) *ElicitationCapability {
	return &ElicitationCapability{disp: disp, log: log, sessID: sessID}
}

// Elicit implements sessions.ElicitationCapability.
func (c *ElicitationCapability) Elicit(ctx context.Context, message string, schema *elicitation.Schema, opts ...sessions.ElicitOption) (elicitation.Outcome, error) {
	if message == "" {
		return elicitation.Outcome{}, errors.New("elicit: empty message")
	}
	if schema == nil {
		return elicitation.Outcome{}, errors.New("elicit: nil schema")
	}
	req := &mcp.ElicitRequest{Message: message, RequestedSchema: schema.Wire()}
	return c.roundTrip(ctx, req, schema, opts)
}

// ElicitURL implements sessions.ElicitationCapability.
func (c *ElicitationCapability) ElicitURL(ctx context.Context, message string, url string, opts ...sessions.ElicitOption) (elicitation.Outcome, error) {
	if message == "" {
		return elicitation.Outcome{}, errors.New("elicit: empty message")
	}
	if url == "" {
		return elicitation.Outcome{}, errors.New("elicit: empty url")
	}
	req := &mcp.ElicitRequest{Message: message, URL: url, ElicitationID: uuid.NewString()}
	return c.roundTrip(ctx, req, nil, opts)
}

// roundTrip performs one request/response exchange and classifies the result.
// Exactly one outcome is produced per call: the dispatcher guarantees the
// pending registration is retired on every resolution path.
func (c *ElicitationCapability) roundTrip(ctx context.Context, req *mcp.ElicitRequest, schema *elicitation.Schema, opts []sessions.ElicitOption) (elicitation.Outcome, error) {
	var cfg sessions.ElicitConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	resp, err := c.disp.Call(ctx, string(mcp.ElicitationCreateMethod), req)
	if err != nil {
		switch {
		case errors.Is(err, outbound.ErrSessionClosed):
			c.log.Debug("elicitation.create.session_closed", slog.String("session_id", c.sessID))
			return elicitation.Outcome{Action: elicitation.ActionCancel}, nil
		case errors.Is(err, outbound.ErrRemoteCancelled):
			c.log.Debug("elicitation.create.remote_cancelled", slog.String("session_id", c.sessID))
			return elicitation.Outcome{Action: elicitation.ActionCancel}, nil
		case errors.Is(err, context.DeadlineExceeded):
			c.log.Debug("elicitation.create.timeout", slog.String("session_id", c.sessID))
			return elicitation.Outcome{Action: elicitation.ActionCancel}, nil
		}
		c.log.Error("elicitation.create.fail", slog.String("session_id", c.sessID), slog.String("err", err.Error()))
		return elicitation.Outcome{}, err
	}

	if resp.Error != nil {
		c.log.Error("elicitation.create.error_response",
			slog.String("session_id", c.sessID),
			slog.Int("code", int(resp.Error.Code)),
			slog.String("message", resp.Error.Message))
		return elicitation.Outcome{}, fmt.Errorf("elicit: client error: %w", resp.Error)
	}

	var res mcp.ElicitResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		c.log.Error("elicitation.result.unmarshal.fail", slog.String("session_id", c.sessID), slog.String("err", err.Error()))
		return elicitation.Outcome{}, fmt.Errorf("%w: %v", elicitation.ErrMalformedResponse, err)
	}

	outcome, err := elicitation.Resolve(schema, &res)
	if err != nil {
		c.log.Error("elicitation.result.resolve.fail", slog.String("session_id", c.sessID), slog.String("err", err.Error()))
		return elicitation.Outcome{}, err
	}
	return outcome, nil
}
