// Package outbound coordinates server-initiated JSON-RPC requests over a
// single session transport: correlation-id allocation, pending-call tracking,
// response routing and mass cancellation when the session goes away.
package outbound

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/vvoland/dhimcp/internal/jsonrpc"
	"github.com/vvoland/dhimcp/mcp"
)

// Transport sends frames to the connected client. Implementations must be
// safe for concurrent use; multiple in-flight tool invocations share one
// dispatcher.
type Transport interface {
	// SendRequest emits the request with its pre-allocated id.
	SendRequest(ctx context.Context, req *jsonrpc.Request) error
	// SendCancelled emits a notifications/cancelled for the given id so the
	// client can tear down any UI it raised for the request.
	SendCancelled(ctx context.Context, requestID string) error
}

var (
	// ErrSessionClosed indicates the session transport went away while a
	// request was pending. Callers treat it as a cancellation, not a failure.
	ErrSessionClosed = errors.New("outbound: session closed")
	// ErrRemoteCancelled indicates the client explicitly abandoned the request.
	ErrRemoteCancelled = errors.New("outbound: remote cancelled")
)

type pendingCall struct {
	respCh chan *jsonrpc.Response
	errCh  chan error
}

// Dispatcher owns the pending-request table for one session. Only the
// dispatcher mutates the table; callers block on their own buffered reply
// channel until exactly one of response, remote cancel, session close or
// context expiry resolves the call.
type Dispatcher struct {
	t Transport

	mu      sync.Mutex
	pending map[string]*pendingCall

	closed   atomic.Bool
	closeErr error
}

// New constructs a Dispatcher over the given transport.
func New(t Transport) *Dispatcher {
	return &Dispatcher{t: t, pending: make(map[string]*pendingCall)}
}

// Call sends a request and waits for its correlated response. The pending
// registration is retired before Call returns on every exit path, so a late
// response after a timeout or cancellation is dropped without effect.
func (d *Dispatcher) Call(ctx context.Context, method string, params any) (*jsonrpc.Response, error) {
	if d.closed.Load() {
		return nil, d.closeError()
	}

	// Correlation ids are opaque and never reused within a session.
	id := jsonrpc.NewStringID(uuid.NewString())
	key := id.String()

	req, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	pc := &pendingCall{
		respCh: make(chan *jsonrpc.Response, 1),
		errCh:  make(chan error, 1),
	}
	d.mu.Lock()
	if d.closed.Load() {
		d.mu.Unlock()
		return nil, d.closeError()
	}
	d.pending[key] = pc
	d.mu.Unlock()

	if err := d.t.SendRequest(ctx, req); err != nil {
		d.retire(key)
		return nil, err
	}

	select {
	case resp := <-pc.respCh:
		return resp, nil
	case err := <-pc.errCh:
		return nil, err
	case <-ctx.Done():
		// Losing path: retire first so a racing response becomes a no-op,
		// then let the client know the request is moot.
		d.retire(key)
		_ = d.t.SendCancelled(context.WithoutCancel(ctx), key)
		return nil, ctx.Err()
	}
}

// OnResponse routes an incoming response to its waiting call. Responses with
// no matching pending entry are dropped; they cannot disturb other calls.
func (d *Dispatcher) OnResponse(resp *jsonrpc.Response) {
	if resp == nil || resp.ID.IsNil() {
		return
	}
	if pc := d.take(resp.ID.String()); pc != nil {
		pc.respCh <- resp
	}
}

// OnCancelled handles a notifications/cancelled frame naming one of our
// outstanding requests.
func (d *Dispatcher) OnCancelled(note *mcp.CancelledNotification) {
	if note == nil || note.RequestID == "" {
		return
	}
	if pc := d.take(note.RequestID); pc != nil {
		pc.errCh <- ErrRemoteCancelled
	}
}

// Close resolves every still-pending call with err (ErrSessionClosed when nil)
// and rejects new calls. It is idempotent.
func (d *Dispatcher) Close(err error) {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	if err == nil {
		err = ErrSessionClosed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeErr = err
	for key, pc := range d.pending {
		delete(d.pending, key)
		pc.errCh <- err
	}
}

// take removes and returns the pending entry for key, or nil. Removal under
// the lock is what makes resolution exactly-once: whichever path takes the
// entry owns the call's single outcome.
func (d *Dispatcher) take(key string) *pendingCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	pc := d.pending[key]
	delete(d.pending, key)
	return pc
}

func (d *Dispatcher) retire(key string) {
	d.mu.Lock()
	delete(d.pending, key)
	d.mu.Unlock()
}

func (d *Dispatcher) closeError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closeErr != nil {
		return d.closeErr
	}
	return ErrSessionClosed
}
