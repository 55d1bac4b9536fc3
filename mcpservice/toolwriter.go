package mcpservice

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vvoland/dhimcp/mcp"
)

// ToolResponseWriter lets a tool handler compose its CallToolResult
// incrementally. It is safe for concurrent use within a single request.
// Writes after Result() return ErrFinalized.
type ToolResponseWriter interface {
	AppendText(text string) error
	// SetError marks the accumulated result as a tool-level error. This is
	// the channel for failures the tool wants to report conversationally;
	// protocol failures should be returned from the handler as Go errors
	// instead.
	SetError(isError bool)
	// Result finalizes and returns the accumulated result. Idempotent.
	Result() *mcp.CallToolResult
}

// ErrFinalized is returned when writing after Result() was called.
var ErrFinalized = errors.New("result already finalized")

type toolResponseWriter struct {
	mu        sync.Mutex
	finalized bool
	blocks    []mcp.ContentBlock
	isError   bool
}

var _ ToolResponseWriter = (*toolResponseWriter)(nil)

func newToolResponseWriter() *toolResponseWriter {
	return &toolResponseWriter{}
}

func (w *toolResponseWriter) AppendText(text string) error {
	if text == "" {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return ErrFinalized
	}
	w.blocks = append(w.blocks, mcp.ContentBlock{Type: "text", Text: text})
	return nil
}

func (w *toolResponseWriter) SetError(isError bool) {
	w.mu.Lock()
	w.isError = isError
	w.mu.Unlock()
}

func (w *toolResponseWriter) Result() *mcp.CallToolResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.finalized = true
	return &mcp.CallToolResult{
		Content: append([]mcp.ContentBlock(nil), w.blocks...),
		IsError: w.isError,
	}
}

// TextResult builds a single-text success result.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: text}}}
}

// Errorf builds an error-flavored result with a formatted message.
func Errorf(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.ContentBlock{{Type: "text", Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
