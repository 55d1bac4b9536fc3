package mcpservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/vvoland/dhimcp/mcp"
	"github.com/vvoland/dhimcp/sessions"
)

// ToolHandler is the function signature used to handle a tool invocation.
type ToolHandler func(ctx context.Context, session sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error)

// StaticTool pairs a tool descriptor with its handler.
type StaticTool struct {
	Descriptor mcp.Tool
	Handler    ToolHandler
}

// StaticTools is a fixed tool set implementing ToolsCapability. The set does
// not change after construction, so lookups are lock-free; the mutex only
// guards lazy sorted-list construction.
type StaticTools struct {
	byName map[string]StaticTool

	once   sync.Once
	sorted []mcp.Tool
}

var _ ToolsCapability = (*StaticTools)(nil)

// NewStaticTools builds a capability from the given tools. Duplicate names
// panic: the tool set is program structure, not runtime input.
func NewStaticTools(tools ...StaticTool) *StaticTools {
	byName := make(map[string]StaticTool, len(tools))
	for _, t := range tools {
		if t.Descriptor.Name == "" {
			panic("mcpservice: tool with empty name")
		}
		if _, dup := byName[t.Descriptor.Name]; dup {
			panic("mcpservice: duplicate tool name " + t.Descriptor.Name)
		}
		byName[t.Descriptor.Name] = t
	}
	return &StaticTools{byName: byName}
}

// ListTools implements ToolsCapability.
func (s *StaticTools) ListTools(ctx context.Context, _ sessions.Session) ([]mcp.Tool, error) {
	s.once.Do(func() {
		s.sorted = make([]mcp.Tool, 0, len(s.byName))
		for _, t := range s.byName {
			s.sorted = append(s.sorted, t.Descriptor)
		}
		sort.Slice(s.sorted, func(i, j int) bool { return s.sorted[i].Name < s.sorted[j].Name })
	})
	return append([]mcp.Tool(nil), s.sorted...), nil
}

// CallTool implements ToolsCapability.
func (s *StaticTools) CallTool(ctx context.Context, session sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("invalid tool request: missing name")
	}
	t, ok := s.byName[req.Name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", req.Name)
	}
	return t.Handler(ctx, session, req)
}

// ToolOption configures NewTool behavior.
type ToolOption func(*toolConfig)

type toolConfig struct {
	description string
}

// WithToolDescription sets the tool description used in listings.
func WithToolDescription(desc string) ToolOption {
	return func(c *toolConfig) { c.description = desc }
}

// NewTool constructs a StaticTool from a typed args struct A. The input
// schema is reflected from A (json + jsonschema struct tags) and runtime
// decoding rejects unknown fields so the advertised schema stays honest.
func NewTool[A any](name string, fn func(ctx context.Context, session sessions.Session, w ToolResponseWriter, args A) error, opts ...ToolOption) StaticTool {
	cfg := toolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	desc := mcp.Tool{
		Name:        name,
		Description: cfg.description,
		InputSchema: reflectInputSchema[A](),
	}

	handler := func(ctx context.Context, session sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error) {
		var a A
		if len(req.Arguments) > 0 {
			dec := json.NewDecoder(bytes.NewReader(req.Arguments))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&a); err != nil {
				return Errorf("invalid arguments: %v", err), nil
			}
		}
		w := newToolResponseWriter()
		if err := fn(ctx, session, w, a); err != nil {
			return nil, err
		}
		return w.Result(), nil
	}

	return StaticTool{Descriptor: desc, Handler: handler}
}

// reflectInputSchema reflects a Go struct into the simplified wire schema.
func reflectInputSchema[A any]() mcp.ToolInputSchema {
	r := &jsonschema.Reflector{
		DoNotReference: true, // inline defs
		ExpandedStruct: true, // put struct at root
	}
	s := r.Reflect(new(A))

	// Non-object argument types degrade to an empty object schema.
	if s == nil || s.Type != "object" {
		return mcp.ToolInputSchema{Type: "object", Properties: map[string]mcp.SchemaProperty{}}
	}

	props := make(map[string]mcp.SchemaProperty)
	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			props[el.Key] = toSchemaProperty(el.Value)
		}
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   append([]string(nil), s.Required...),
	}
}

// toSchemaProperty maps a reflected jsonschema node to the wire property form.
func toSchemaProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	if s == nil {
		return mcp.SchemaProperty{}
	}
	p := mcp.SchemaProperty{
		Type:        s.Type,
		Description: s.Description,
		Default:     s.Default,
	}
	if len(s.Enum) > 0 {
		p.Enum = append([]any(nil), s.Enum...)
	}
	if s.Items != nil {
		item := toSchemaProperty(s.Items)
		p.Items = &item
	}
	if s.Properties != nil {
		p.Properties = make(map[string]mcp.SchemaProperty)
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			p.Properties[el.Key] = toSchemaProperty(el.Value)
		}
	}
	return p
}
