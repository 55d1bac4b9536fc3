package outbound

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vvoland/dhimcp/internal/jsonrpc"
	"github.com/vvoland/dhimcp/mcp"
)

// fakeTransport records sent frames and lets tests answer them.
type fakeTransport struct {
	mu        sync.Mutex
	requests  []*jsonrpc.Request
	cancelled []string
	sendErr   error
}

func (f *fakeTransport) SendRequest(_ context.Context, req *jsonrpc.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.requests = append(f.requests, req)
	return nil
}

func (f *fakeTransport) SendCancelled(_ context.Context, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, requestID)
	return nil
}

func (f *fakeTransport) sentIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.requests))
	for i, r := range f.requests {
		ids[i] = r.ID.String()
	}
	return ids
}

func (f *fakeTransport) waitForRequests(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ids := f.sentIDs(); len(ids) >= n {
			return ids
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d requests", n)
	return nil
}

func TestCallResolvedByResponse(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)

	done := make(chan struct{})
	var resp *jsonrpc.Response
	var callErr error
	go func() {
		defer close(done)
		resp, callErr = d.Call(context.Background(), string(mcp.ElicitationCreateMethod), map[string]any{"message": "hi"})
	}()

	ids := ft.waitForRequests(t, 1)
	d.OnResponse(&jsonrpc.Response{
		JSONRPCVersion: jsonrpc.Version,
		ID:             jsonrpc.NewStringID(ids[0]),
		Result:         []byte(`{"action":"accept"}`),
	})

	<-done
	if callErr != nil {
		t.Fatalf("call: %v", callErr)
	}
	if resp == nil || string(resp.Result) != `{"action":"accept"}` {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestConcurrentCallsGetDistinctIDs(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)

	const n = 16
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := d.Call(context.Background(), string(mcp.ElicitationCreateMethod), nil)
			results <- err
		}()
	}

	ids := ft.waitForRequests(t, n)
	seen := make(map[string]struct{}, n)
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate correlation id %q", id)
		}
		seen[id] = struct{}{}
	}

	// Answer each call exactly once; every caller must come back clean.
	for _, id := range ids {
		d.OnResponse(&jsonrpc.Response{
			JSONRPCVersion: jsonrpc.Version,
			ID:             jsonrpc.NewStringID(id),
			Result:         []byte(`{}`),
		})
	}
	for i := 0; i < n; i++ {
		if err := <-results; err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

func TestUnmatchedResponseDropped(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)

	done := make(chan error, 1)
	go func() {
		_, err := d.Call(context.Background(), string(mcp.ElicitationCreateMethod), nil)
		done <- err
	}()

	ids := ft.waitForRequests(t, 1)

	// A response for an id we never issued must not resolve the real call.
	d.OnResponse(&jsonrpc.Response{
		JSONRPCVersion: jsonrpc.Version,
		ID:             jsonrpc.NewStringID("nobody-home"),
		Result:         []byte(`{}`),
	})
	select {
	case err := <-done:
		t.Fatalf("call resolved by unmatched response: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	d.OnResponse(&jsonrpc.Response{
		JSONRPCVersion: jsonrpc.Version,
		ID:             jsonrpc.NewStringID(ids[0]),
		Result:         []byte(`{}`),
	})
	if err := <-done; err != nil {
		t.Fatalf("call: %v", err)
	}
}

func TestCloseResolvesAllPending(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)

	const n = 2
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := d.Call(context.Background(), string(mcp.ElicitationCreateMethod), nil)
			results <- err
		}()
	}
	ft.waitForRequests(t, n)

	d.Close(nil)
	for i := 0; i < n; i++ {
		if err := <-results; !errors.Is(err, ErrSessionClosed) {
			t.Fatalf("call %d: got %v, want ErrSessionClosed", i, err)
		}
	}

	// Closed dispatcher rejects new calls immediately.
	if _, err := d.Call(context.Background(), string(mcp.ElicitationCreateMethod), nil); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("post-close call: got %v, want ErrSessionClosed", err)
	}

	// Idempotent.
	d.Close(nil)
}

func TestRemoteCancelResolvesCall(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)

	done := make(chan error, 1)
	go func() {
		_, err := d.Call(context.Background(), string(mcp.ElicitationCreateMethod), nil)
		done <- err
	}()

	ids := ft.waitForRequests(t, 1)
	d.OnCancelled(&mcp.CancelledNotification{RequestID: ids[0]})
	if err := <-done; !errors.Is(err, ErrRemoteCancelled) {
		t.Fatalf("got %v, want ErrRemoteCancelled", err)
	}

	// Replay of the same cancellation is a no-op.
	d.OnCancelled(&mcp.CancelledNotification{RequestID: ids[0]})
}

func TestContextExpiryRetiresCall(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Call(ctx, string(mcp.ElicitationCreateMethod), nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want DeadlineExceeded", err)
	}

	ids := ft.sentIDs()
	if len(ids) != 1 {
		t.Fatalf("expected 1 sent request, got %d", len(ids))
	}

	// The client was told to tear down its prompt.
	ft.mu.Lock()
	cancelled := append([]string(nil), ft.cancelled...)
	ft.mu.Unlock()
	if len(cancelled) != 1 || cancelled[0] != ids[0] {
		t.Fatalf("cancelled = %v, want [%s]", cancelled, ids[0])
	}

	// A response arriving after the timeout is dropped without effect.
	d.OnResponse(&jsonrpc.Response{
		JSONRPCVersion: jsonrpc.Version,
		ID:             jsonrpc.NewStringID(ids[0]),
		Result:         []byte(`{}`),
	})
}

func TestSendFailureRetiresCall(t *testing.T) {
	ft := &fakeTransport{sendErr: errors.New("pipe broken")}
	d := New(ft)

	_, err := d.Call(context.Background(), string(mcp.ElicitationCreateMethod), nil)
	if err == nil || err.Error() != "pipe broken" {
		t.Fatalf("got %v, want send error", err)
	}
}
