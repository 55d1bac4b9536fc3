package elicitation

import (
	"errors"
	"testing"

	"github.com/vvoland/dhimcp/mcp"
)

func TestResolveAccept(t *testing.T) {
	s := mustSchema(t, NewSchema().
		String("username", Required(), MinLength(3)).
		Boolean("active"))

	content := map[string]any{"username": "carol", "active": true}
	out, err := Resolve(s, &mcp.ElicitResult{Action: mcp.ElicitActionAccept, Content: content})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !out.Accepted() {
		t.Fatalf("action = %q, want accept", out.Action)
	}
	if out.Payload["username"] != "carol" || out.Payload["active"] != true {
		t.Fatalf("payload = %v", out.Payload)
	}

	// The outcome owns its payload; mutating the source must not alias.
	content["username"] = "mallory"
	if out.Payload["username"] != "carol" {
		t.Fatal("payload aliases the response content")
	}
}

func TestResolveDeclineIgnoresContent(t *testing.T) {
	s := mustSchema(t, NewSchema().String("username", Required()))

	// Content on a decline is ignored even when it would violate the schema.
	out, err := Resolve(s, &mcp.ElicitResult{
		Action:  mcp.ElicitActionDecline,
		Content: map[string]any{"bogus": 1},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out.Action != ActionDecline {
		t.Fatalf("action = %q, want decline", out.Action)
	}
	if out.Payload != nil {
		t.Fatalf("declined outcome carries payload: %v", out.Payload)
	}
}

func TestResolveCancel(t *testing.T) {
	out, err := Resolve(nil, &mcp.ElicitResult{Action: mcp.ElicitActionCancel})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out.Action != ActionCancel || out.Payload != nil {
		t.Fatalf("outcome = %+v, want bare cancel", out)
	}
}

func TestResolveAcceptViolatingPayload(t *testing.T) {
	s := mustSchema(t, NewSchema().
		Enum("environment", []string{"development", "staging", "production"}, Required()))

	_, err := Resolve(s, &mcp.ElicitResult{
		Action:  mcp.ElicitActionAccept,
		Content: map[string]any{"environment": "qa"},
	})
	if err == nil {
		t.Fatal("expected error for out-of-enum accept")
	}
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("error should wrap ErrMalformedResponse, got: %v", err)
	}
	var sv *SchemaViolation
	if !errors.As(err, &sv) {
		t.Fatalf("error should carry the violation detail, got: %v", err)
	}
}

func TestResolveAcceptMissingRequired(t *testing.T) {
	s := mustSchema(t, NewSchema().String("username", Required()))

	// Accept with no content at all still fails the required check.
	_, err := Resolve(s, &mcp.ElicitResult{Action: mcp.ElicitActionAccept})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got: %v", err)
	}
}

func TestResolveURLModeAccept(t *testing.T) {
	out, err := Resolve(nil, &mcp.ElicitResult{
		Action:  mcp.ElicitActionAccept,
		Content: map[string]any{"stray": true},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !out.Accepted() || out.Payload != nil {
		t.Fatalf("url-mode accept should be a bare acknowledgement, got %+v", out)
	}
}

func TestResolveUnknownAction(t *testing.T) {
	_, err := Resolve(nil, &mcp.ElicitResult{Action: "maybe"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got: %v", err)
	}
}
