package jsonrpc

import (
	"encoding/json"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   string
		key  string
	}{
		{"string id", `"abc-123"`, "abc-123"},
		{"number id", `42`, "42"},
		{"zero id", `0`, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var id RequestID
			if err := json.Unmarshal([]byte(tc.in), &id); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if id.IsNil() {
				t.Fatal("id should be set")
			}
			if id.String() != tc.key {
				t.Errorf("key = %q, want %q", id.String(), tc.key)
			}
			out, err := json.Marshal(&id)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(out) != tc.in {
				t.Errorf("marshal = %s, want %s", out, tc.in)
			}
		})
	}
}

func TestRequestIDRejectsOtherTypes(t *testing.T) {
	for _, in := range []string{`1.5`, `true`, `{}`, `[1]`} {
		var id RequestID
		if err := json.Unmarshal([]byte(in), &id); err == nil {
			t.Errorf("expected error for %s", in)
		}
	}
}

func TestAnyMessageClassification(t *testing.T) {
	var req AnyMessage
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`), &req); err != nil {
		t.Fatal(err)
	}
	if req.AsRequest() == nil {
		t.Error("frame with method should be a request")
	}
	if req.AsResponse() != nil {
		t.Error("frame with method should not be a response")
	}

	var note AnyMessage
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`), &note); err != nil {
		t.Fatal(err)
	}
	r := note.AsRequest()
	if r == nil || !r.ID.IsNil() {
		t.Errorf("notification should be a request with nil id, got %+v", r)
	}

	var resp AnyMessage
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":"x","result":{}}`), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.AsRequest() != nil {
		t.Error("frame without method should not be a request")
	}
	if got := resp.AsResponse(); got == nil || got.ID.String() != "x" {
		t.Errorf("response = %+v", got)
	}
}

func TestNewRequestNotification(t *testing.T) {
	req, err := NewRequest(nil, "notifications/cancelled", map[string]string{"requestId": "r1"})
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	b, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if _, hasID := m["id"]; hasID {
		t.Errorf("notification must not carry an id: %s", b)
	}
	if m["jsonrpc"] != Version {
		t.Errorf("jsonrpc = %v", m["jsonrpc"])
	}
}

func TestErrorResponse(t *testing.T) {
	resp := NewErrorResponse(NewStringID("r"), ErrorCodeMethodNotFound, "nope")
	if resp.Error == nil || resp.Error.Code != ErrorCodeMethodNotFound {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Error.Error() == "" {
		t.Error("error string empty")
	}
}
