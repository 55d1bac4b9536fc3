// Package elicitation provides the building blocks for the MCP elicitation
// exchange: a running tool suspends, asks the connected client for structured
// input described by a flat schema, and resumes with a three-way outcome.
//
// The package splits the flow into two halves:
//
//	Schema  --> describes *what* is being asked for: an immutable, ordered set
//	            of primitive fields with kinds, bounds, enums, defaults and a
//	            required set. Built once per elicitation via the fluent
//	            Builder, validated at Build time.
//	Resolve --> classifies *what came back*: decline and cancel map to their
//	            outcomes unconditionally, accept is validated against the
//	            originating schema before any payload is exposed to the tool.
//
// Validation is total: Schema.Validate inspects every field and reports every
// violation in one SchemaViolation rather than stopping at the first, so a
// client author gets a complete picture of what to fix.
//
// Defaults declared on fields are schema metadata only. They ride along on the
// wire so clients can pre-populate forms, but Resolve never copies them into
// an accepted payload; absent optional fields stay absent.
package elicitation
