package elicitation

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/vvoland/dhimcp/mcp"
)

// Kind is the primitive type of a schema field.
type Kind string

const (
	KindBoolean Kind = "boolean"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindString  Kind = "string"
)

// FieldSpec describes a single schema field. Bounds are pointers so a zero
// bound is distinguishable from an unset one.
type FieldSpec struct {
	Kind        Kind
	Description string
	Default     any
	Minimum     *float64
	Maximum     *float64
	MinLength   *int
	MaxLength   *int
	Enum        []any
	Required    bool
}

// Schema is an immutable descriptor of the structured data an elicitation
// requests. Construct one with Builder; after Build it never changes and is
// safe for concurrent use.
type Schema struct {
	fields   *orderedmap.OrderedMap[string, *FieldSpec]
	required []string
}

// Builder assembles a Schema field by field.
// Usage:
//
//	s, err := elicitation.NewSchema().
//	    String("username", elicitation.Required(), elicitation.MinLength(3)).
//	    Enum("role", []string{"admin", "editor", "viewer"}, elicitation.Required()).
//	    Boolean("active", elicitation.Default(true)).
//	    Build()
type Builder struct {
	fields *orderedmap.OrderedMap[string, *FieldSpec]
	built  bool
}

// NewSchema returns an empty schema builder.
func NewSchema() *Builder {
	return &Builder{fields: orderedmap.New[string, *FieldSpec]()}
}

// FieldOption mutates a field under construction.
type FieldOption func(*FieldSpec)

// Required marks the field as mandatory in any accepted payload.
func Required() FieldOption { return func(f *FieldSpec) { f.Required = true } }

// Description sets the human-readable field description.
func Description(desc string) FieldOption { return func(f *FieldSpec) { f.Description = desc } }

// Default records a default value. Defaults are shipped to the client as form
// metadata; they are never filled into accepted payloads server-side.
func Default(v any) FieldOption { return func(f *FieldSpec) { f.Default = v } }

// Minimum sets the numeric lower bound (inclusive).
func Minimum(v float64) FieldOption { return func(f *FieldSpec) { f.Minimum = &v } }

// Maximum sets the numeric upper bound (inclusive).
func Maximum(v float64) FieldOption { return func(f *FieldSpec) { f.Maximum = &v } }

// MinLength sets the minimum string length.
func MinLength(n int) FieldOption { return func(f *FieldSpec) { f.MinLength = &n } }

// MaxLength sets the maximum string length.
func MaxLength(n int) FieldOption { return func(f *FieldSpec) { f.MaxLength = &n } }

// Boolean adds a boolean field.
func (b *Builder) Boolean(name string, opts ...FieldOption) *Builder {
	return b.add(name, KindBoolean, opts...)
}

// Integer adds an integer field.
func (b *Builder) Integer(name string, opts ...FieldOption) *Builder {
	return b.add(name, KindInteger, opts...)
}

// Number adds a number field.
func (b *Builder) Number(name string, opts ...FieldOption) *Builder {
	return b.add(name, KindNumber, opts...)
}

// String adds a string field.
func (b *Builder) String(name string, opts ...FieldOption) *Builder {
	return b.add(name, KindString, opts...)
}

// Enum adds a string field constrained to a closed set of values.
func (b *Builder) Enum(name string, values []string, opts ...FieldOption) *Builder {
	b.add(name, KindString, opts...)
	f, _ := b.fields.Get(name)
	f.Enum = make([]any, len(values))
	for i, v := range values {
		f.Enum[i] = v
	}
	return b
}

func (b *Builder) add(name string, kind Kind, opts ...FieldOption) *Builder {
	if strings.TrimSpace(name) == "" {
		panic("elicitation: empty field name")
	}
	f, ok := b.fields.Get(name)
	if !ok {
		f = &FieldSpec{}
		b.fields.Set(name, f)
	}
	f.Kind = kind
	for _, o := range opts {
		if o != nil {
			o(f)
		}
	}
	return b
}

// Build finalizes the schema. It verifies the descriptor's own invariants:
// enum values match the declared kind, bounds are coherent, and every default
// satisfies its field's constraints.
func (b *Builder) Build() (*Schema, error) {
	if b.built {
		return nil, errors.New("elicitation: builder reused after Build")
	}
	b.built = true

	var required []string
	for pair := b.fields.Oldest(); pair != nil; pair = pair.Next() {
		name, f := pair.Key, pair.Value
		if err := checkFieldSpec(name, f); err != nil {
			return nil, err
		}
		if f.Required {
			required = append(required, name)
		}
	}
	return &Schema{fields: b.fields, required: required}, nil
}

// MustBuild panics on error.
func (b *Builder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func checkFieldSpec(name string, f *FieldSpec) error {
	switch f.Kind {
	case KindBoolean, KindInteger, KindNumber, KindString:
	default:
		return fmt.Errorf("elicitation: field %s: unsupported kind %q", name, f.Kind)
	}
	if f.Minimum != nil && f.Maximum != nil && *f.Minimum > *f.Maximum {
		return fmt.Errorf("elicitation: field %s: minimum greater than maximum", name)
	}
	if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
		return fmt.Errorf("elicitation: field %s: minLength greater than maxLength", name)
	}
	if len(f.Enum) > 0 {
		if f.Kind == KindBoolean {
			return fmt.Errorf("elicitation: field %s: enum not allowed for boolean fields", name)
		}
		seen := make(map[any]struct{}, len(f.Enum))
		for _, v := range f.Enum {
			if reason := checkKind(f, v); reason != "" {
				return fmt.Errorf("elicitation: field %s: enum value %v: %s", name, v, reason)
			}
			if _, dup := seen[v]; dup {
				return fmt.Errorf("elicitation: field %s: duplicate enum value %v", name, v)
			}
			seen[v] = struct{}{}
		}
	}
	if f.Default != nil {
		if reason := checkValue(f, f.Default); reason != "" {
			return fmt.Errorf("elicitation: field %s: default %v: %s", name, f.Default, reason)
		}
	}
	return nil
}

// Required returns the names of required fields in declaration order.
func (s *Schema) Required() []string {
	return append([]string(nil), s.required...)
}

// Field returns the spec for the named field.
func (s *Schema) Field(name string) (FieldSpec, bool) {
	f, ok := s.fields.Get(name)
	if !ok {
		return FieldSpec{}, false
	}
	return *f, true
}

// Wire renders the schema in the form the elicitation request carries.
func (s *Schema) Wire() *mcp.ElicitationSchema {
	props := make(map[string]mcp.PrimitiveSchemaDefinition, s.fields.Len())
	for pair := s.fields.Oldest(); pair != nil; pair = pair.Next() {
		f := pair.Value
		props[pair.Key] = mcp.PrimitiveSchemaDefinition{
			Type:        string(f.Kind),
			Description: f.Description,
			Default:     f.Default,
			Minimum:     f.Minimum,
			Maximum:     f.Maximum,
			MinLength:   f.MinLength,
			MaxLength:   f.MaxLength,
			Enum:        append([]any(nil), f.Enum...),
		}
	}
	return &mcp.ElicitationSchema{
		Type:       "object",
		Properties: props,
		Required:   s.Required(),
	}
}

// Violation is a single constraint failure, attributed to its field.
type Violation struct {
	Field  string
	Reason string
}

// SchemaViolation reports every constraint failure found in a candidate
// payload. Validation never stops at the first problem.
type SchemaViolation struct {
	Violations []Violation
}

func (e *SchemaViolation) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("field %s: %s", v.Field, v.Reason)
	}
	return "schema violation: " + strings.Join(parts, "; ")
}

// Validate checks a candidate payload against the schema. It returns nil when
// the payload satisfies the required set and every per-field constraint, or a
// *SchemaViolation enumerating all offending fields.
func (s *Schema) Validate(payload map[string]any) error {
	var violations []Violation

	for pair := s.fields.Oldest(); pair != nil; pair = pair.Next() {
		name, f := pair.Key, pair.Value
		val, present := payload[name]
		if !present {
			if f.Required {
				violations = append(violations, Violation{Field: name, Reason: "required field missing"})
			}
			continue
		}
		if reason := checkValue(f, val); reason != "" {
			violations = append(violations, Violation{Field: name, Reason: reason})
		}
	}

	var unknown []string
	for name := range payload {
		if _, ok := s.fields.Get(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		violations = append(violations, Violation{Field: name, Reason: "unknown field"})
	}

	if len(violations) > 0 {
		return &SchemaViolation{Violations: violations}
	}
	return nil
}

// checkValue verifies kind, bounds and enum membership for one value. An empty
// reason means the value conforms.
func checkValue(f *FieldSpec, val any) string {
	if reason := checkKind(f, val); reason != "" {
		return reason
	}
	if len(f.Enum) > 0 {
		for _, ev := range f.Enum {
			if enumEqual(ev, val) {
				return ""
			}
		}
		return fmt.Sprintf("value %v not in enum", val)
	}
	switch f.Kind {
	case KindInteger, KindNumber:
		n, _ := asNumber(val)
		if f.Minimum != nil && n < *f.Minimum {
			return fmt.Sprintf("value %v below minimum %v", val, *f.Minimum)
		}
		if f.Maximum != nil && n > *f.Maximum {
			return fmt.Sprintf("value %v above maximum %v", val, *f.Maximum)
		}
	case KindString:
		str := val.(string)
		if f.MinLength != nil && len(str) < *f.MinLength {
			return fmt.Sprintf("length %d below minLength %d", len(str), *f.MinLength)
		}
		if f.MaxLength != nil && len(str) > *f.MaxLength {
			return fmt.Sprintf("length %d above maxLength %d", len(str), *f.MaxLength)
		}
	}
	return ""
}

func checkKind(f *FieldSpec, val any) string {
	if val == nil {
		return "null value"
	}
	switch f.Kind {
	case KindBoolean:
		if _, ok := val.(bool); !ok {
			return fmt.Sprintf("expected boolean, got %T", val)
		}
	case KindInteger:
		n, ok := asNumber(val)
		if !ok {
			return fmt.Sprintf("expected integer, got %T", val)
		}
		if n != math.Trunc(n) {
			return fmt.Sprintf("expected integer, got %v", val)
		}
	case KindNumber:
		if _, ok := asNumber(val); !ok {
			return fmt.Sprintf("expected number, got %T", val)
		}
	case KindString:
		if _, ok := val.(string); !ok {
			return fmt.Sprintf("expected string, got %T", val)
		}
	}
	return ""
}

// asNumber widens the numeric representations seen both from JSON decoding
// (float64) and from Go-constructed payloads.
func asNumber(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func enumEqual(enumVal, val any) bool {
	if ev, ok := asNumber(enumVal); ok {
		v, ok := asNumber(val)
		return ok && ev == v
	}
	return enumVal == val
}
