package stdio

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/vvoland/dhimcp/internal/jsonrpc"
	"github.com/vvoland/dhimcp/mcp"
)

// writeMux serializes newline-delimited JSON frames onto the shared writer.
// Tool goroutines, elicitation requests and the read loop's responses all
// funnel through here.
type writeMux struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newWriteMux(w io.Writer) *writeMux {
	return &writeMux{enc: json.NewEncoder(w)}
}

func (m *writeMux) write(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enc.Encode(v)
}

// transport adapts the writeMux to the outbound dispatcher's contract.
type transport struct {
	mux *writeMux
}

func (t *transport) SendRequest(_ context.Context, req *jsonrpc.Request) error {
	return t.mux.write(req)
}

func (t *transport) SendCancelled(_ context.Context, requestID string) error {
	note, err := jsonrpc.NewRequest(nil, string(mcp.CancelledNotificationMethod),
		mcp.CancelledNotification{RequestID: requestID})
	if err != nil {
		return err
	}
	return t.mux.write(note)
}
