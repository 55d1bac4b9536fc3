package sessioncore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vvoland/dhimcp/elicitation"
	"github.com/vvoland/dhimcp/internal/jsonrpc"
	"github.com/vvoland/dhimcp/internal/outbound"
	"github.com/vvoland/dhimcp/mcp"
	"github.com/vvoland/dhimcp/sessions"
)

// scriptedTransport answers every elicitation/create with a fixed result.
type scriptedTransport struct {
	disp *outbound.Dispatcher

	mu       sync.Mutex
	requests []*mcp.ElicitRequest
	result   func(req *mcp.ElicitRequest) any
	silent   bool
}

func (s *scriptedTransport) SendRequest(_ context.Context, req *jsonrpc.Request) error {
	var er mcp.ElicitRequest
	if err := json.Unmarshal(req.Params, &er); err != nil {
		return err
	}
	s.mu.Lock()
	s.requests = append(s.requests, &er)
	silent := s.silent
	s.mu.Unlock()
	if silent {
		return nil
	}
	// Deliver the scripted response asynchronously, like a real client.
	go func() {
		raw, _ := json.Marshal(s.result(&er))
		s.disp.OnResponse(&jsonrpc.Response{
			JSONRPCVersion: jsonrpc.Version,
			ID:             req.ID,
			Result:         raw,
		})
	}()
	return nil
}

func (s *scriptedTransport) SendCancelled(_ context.Context, _ string) error { return nil }

func newScriptedCapability(result func(req *mcp.ElicitRequest) any) (*ElicitationCapability, *scriptedTransport) {
	st := &scriptedTransport{result: result}
	st.disp = outbound.New(st)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewElicitationCapability(st.disp, log, "sess-1"), st
}

func TestElicitAcceptedPayload(t *testing.T) {
	cap, st := newScriptedCapability(func(_ *mcp.ElicitRequest) any {
		return mcp.ElicitResult{
			Action:  mcp.ElicitActionAccept,
			Content: map[string]any{"username": "carol"},
		}
	})

	schema := elicitation.NewSchema().
		String("username", elicitation.Required(), elicitation.MinLength(3)).
		MustBuild()

	out, err := cap.Elicit(context.Background(), "Who are you?", schema)
	if err != nil {
		t.Fatalf("elicit: %v", err)
	}
	if !out.Accepted() || out.Payload["username"] != "carol" {
		t.Fatalf("outcome = %+v", out)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(st.requests))
	}
	req := st.requests[0]
	if req.Message != "Who are you?" {
		t.Errorf("message = %q", req.Message)
	}
	if req.RequestedSchema == nil || req.RequestedSchema.Type != "object" {
		t.Errorf("requestedSchema not carried: %+v", req.RequestedSchema)
	}
	if req.URL != "" || req.ElicitationID != "" {
		t.Errorf("form-mode request must not carry url fields: %+v", req)
	}
}

func TestElicitMalformedAcceptFailsCall(t *testing.T) {
	cap, _ := newScriptedCapability(func(_ *mcp.ElicitRequest) any {
		return mcp.ElicitResult{
			Action:  mcp.ElicitActionAccept,
			Content: map[string]any{"environment": "qa"},
		}
	})

	schema := elicitation.NewSchema().
		Enum("environment", []string{"development", "staging", "production"}, elicitation.Required()).
		MustBuild()

	_, err := cap.Elicit(context.Background(), "Pick an environment:", schema)
	if !errors.Is(err, elicitation.ErrMalformedResponse) {
		t.Fatalf("got %v, want ErrMalformedResponse", err)
	}
}

func TestElicitURLRequestShape(t *testing.T) {
	cap, st := newScriptedCapability(func(_ *mcp.ElicitRequest) any {
		return mcp.ElicitResult{Action: mcp.ElicitActionAccept}
	})

	out, err := cap.ElicitURL(context.Background(), "Visit the docs", "https://docs.example.com/faq")
	if err != nil {
		t.Fatalf("elicit url: %v", err)
	}
	if !out.Accepted() || out.Payload != nil {
		t.Fatalf("outcome = %+v", out)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	req := st.requests[0]
	if req.URL != "https://docs.example.com/faq" {
		t.Errorf("url = %q", req.URL)
	}
	if req.ElicitationID == "" {
		t.Error("url-mode request must carry an elicitationId")
	}
	if req.RequestedSchema != nil {
		t.Errorf("url-mode request must not carry a schema: %+v", req.RequestedSchema)
	}
}

func TestElicitTimeoutYieldsCancel(t *testing.T) {
	cap, st := newScriptedCapability(nil)
	st.silent = true

	schema := elicitation.NewSchema().Boolean("ok").MustBuild()

	start := time.Now()
	out, err := cap.Elicit(context.Background(), "Anyone there?", schema,
		sessions.WithTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("timeout must resolve as cancel, not error: %v", err)
	}
	if out.Action != elicitation.ActionCancel {
		t.Fatalf("action = %q, want cancel", out.Action)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout took %v", elapsed)
	}
}

func TestElicitSessionClosedYieldsCancel(t *testing.T) {
	cap, st := newScriptedCapability(nil)
	st.silent = true

	schema := elicitation.NewSchema().Boolean("ok").MustBuild()

	done := make(chan struct{})
	var out elicitation.Outcome
	var elicitErr error
	go func() {
		defer close(done)
		out, elicitErr = cap.Elicit(context.Background(), "Anyone there?", schema)
	}()

	// Wait for the request to be in flight, then drop the session.
	deadline := time.Now().Add(2 * time.Second)
	for {
		st.mu.Lock()
		n := len(st.requests)
		st.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("request never sent")
		}
		time.Sleep(time.Millisecond)
	}
	st.disp.Close(nil)

	<-done
	if elicitErr != nil {
		t.Fatalf("session close must resolve as cancel, not error: %v", elicitErr)
	}
	if out.Action != elicitation.ActionCancel {
		t.Fatalf("action = %q, want cancel", out.Action)
	}
}

func TestElicitRejectsEmptyInputs(t *testing.T) {
	cap, _ := newScriptedCapability(func(_ *mcp.ElicitRequest) any { return nil })
	schema := elicitation.NewSchema().Boolean("ok").MustBuild()

	if _, err := cap.Elicit(context.Background(), "", schema); err == nil {
		t.Error("expected error for empty message")
	}
	if _, err := cap.Elicit(context.Background(), "hi", nil); err == nil {
		t.Error("expected error for nil schema")
	}
	if _, err := cap.ElicitURL(context.Background(), "hi", ""); err == nil {
		t.Error("expected error for empty url")
	}
}
