// Package stdio provides a single-connection transport that speaks
// newline-delimited JSON-RPC over an io.Reader/io.Writer pair, defaulting to
// os.Stdin/os.Stdout.
//
// The handler is transport-only: it owns framing, the initialize lifecycle
// and message routing, and delegates all tool semantics to the provided
// mcpservice.ServerCapabilities. Tool calls run in their own goroutines so a
// tool suspended in an elicitation never blocks the read loop; responses from
// the client are routed to the session's outbound dispatcher, which wakes the
// matching suspended call.
package stdio
