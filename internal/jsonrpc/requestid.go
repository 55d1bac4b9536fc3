package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// RequestID is the JSON-RPC id union: a string or a number. The zero value is
// the absent id.
type RequestID struct {
	str   string
	num   int64
	isNum bool
	set   bool
}

// NewStringID builds a string-typed request id.
func NewStringID(s string) *RequestID { return &RequestID{str: s, set: true} }

// NewNumberID builds a number-typed request id.
func NewNumberID(n int64) *RequestID { return &RequestID{num: n, isNum: true, set: true} }

// IsNil reports whether the id is absent.
func (id *RequestID) IsNil() bool { return id == nil || !id.set }

// String returns the canonical key form of the id. Numeric ids render in
// decimal so that a response echoing the same number maps to the same key.
func (id *RequestID) String() string {
	if id.IsNil() {
		return ""
	}
	if id.isNum {
		return fmt.Sprintf("%d", id.num)
	}
	return id.str
}

func (id *RequestID) MarshalJSON() ([]byte, error) {
	if id.IsNil() {
		return []byte("null"), nil
	}
	if id.isNum {
		return json.Marshal(id.num)
	}
	return json.Marshal(id.str)
}

func (id *RequestID) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*id = RequestID{num: n, isNum: true, set: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = RequestID{str: s, set: true}
		return nil
	}
	return fmt.Errorf("jsonrpc: id must be a string or an integer, got %s", string(data))
}
