package model

import (
	"fmt"
	"sort"
	"strconv"
)

// Value is the recursive tagged union backing custom_data, derived-state raw
// maps, and every dotted-path lookup the policy engine performs. It mirrors
// JSON's data model (null, bool, number, string, array, object) rather than
// Go's native map[string]any, so that equality, stringification, and numeric
// coercion have one place to live instead of being scattered across callers.
type Value struct {
	kind   valueKind
	b      bool
	n      float64
	s      string
	arr    []Value
	object map[string]Value
}

type valueKind int

const (
	KindNull valueKind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func Null() Value             { return Value{kind: KindNull} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Number(n float64) Value  { return Value{kind: KindNumber, n: n} }
func String(s string) Value   { return Value{kind: KindString, s: s} }
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }
func Object(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindObject, object: m}
}

func (v Value) Kind() valueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) AsNumber() (float64, bool) {
	if v.kind == KindNumber {
		return v.n, true
	}
	return 0, false
}
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsArray() ([]Value, bool) {
	if v.kind == KindArray {
		return v.arr, true
	}
	return nil, false
}
func (v Value) AsObject() (map[string]Value, bool) {
	if v.kind == KindObject {
		return v.object, true
	}
	return nil, false
}

// Get resolves a dotted path ("custom_data.compliance.checked") by walking
// nested objects. A missing segment, or an attempt to index through a
// non-object, yields Null rather than an error; existence checks in the
// policy DSL depend on this never failing.
func (v Value) Get(path []string) Value {
	cur := v
	for _, seg := range path {
		obj, ok := cur.AsObject()
		if !ok {
			return Null()
		}
		next, found := obj[seg]
		if !found {
			return Null()
		}
		cur = next
	}
	return cur
}

// Has reports whether path resolves to an actual key, distinguishing a
// stored null from an absent key (Get returns Null for both).
func (v Value) Has(path []string) bool {
	cur := v
	for _, seg := range path {
		obj, ok := cur.AsObject()
		if !ok {
			return false
		}
		next, found := obj[seg]
		if !found {
			return false
		}
		cur = next
	}
	return true
}

// Delete returns a new Value with the key at path removed. A path that does
// not resolve to an existing key is a no-op. The receiver is never mutated.
func (v Value) Delete(path []string) Value {
	if len(path) == 0 {
		return Null()
	}
	obj, ok := v.AsObject()
	if !ok {
		return v
	}
	if _, found := obj[path[0]]; !found {
		return v
	}
	cloned := make(map[string]Value, len(obj))
	for k, vv := range obj {
		cloned[k] = vv
	}
	if len(path) == 1 {
		delete(cloned, path[0])
	} else {
		cloned[path[0]] = cloned[path[0]].Delete(path[1:])
	}
	return Object(cloned)
}

// Set returns a new Value with path set to val, creating intermediate
// objects as needed. The receiver is never mutated. Set only operates on
// objects (or Null, treated as an empty object); setting through an array or
// scalar is a caller error reported by the policy evaluator, not here.
func (v Value) Set(path []string, val Value) (Value, error) {
	if len(path) == 0 {
		return val, nil
	}
	obj, ok := v.AsObject()
	if !ok {
		if v.IsNull() {
			obj = map[string]Value{}
		} else {
			return Value{}, fmt.Errorf("cannot set path through non-object value")
		}
	}
	cloned := make(map[string]Value, len(obj)+1)
	for k, vv := range obj {
		cloned[k] = vv
	}
	child := cloned[path[0]]
	updatedChild, err := child.Set(path[1:], val)
	if err != nil {
		return Value{}, err
	}
	cloned[path[0]] = updatedChild
	return Object(cloned), nil
}

// String renders the value for CONTAINS/MATCHES stringification and display.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindString:
		return v.s
	case KindArray:
		out := "["
		for i, e := range v.arr {
			if i > 0 {
				out += ","
			}
			out += e.String()
		}
		return out + "]"
	case KindObject:
		keys := make([]string, 0, len(v.object))
		for k := range v.object {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ","
			}
			out += k + ":" + v.object[k].String()
		}
		return out + "}"
	default:
		return ""
	}
}

// Equal is strict equality: kinds must match (no cross-kind coercion here;
// numeric string coercion for comparisons lives in the policy evaluator,
// which is the only caller that needs it).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.object) != len(o.object) {
			return false
		}
		for k, vv := range v.object {
			ov, ok := o.object[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FromAny converts a JSON-decoded map[string]any / []any / scalar tree (as
// produced by encoding/json with UseNumber off) into a Value tree.
func FromAny(in any) Value {
	switch t := in.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case string:
		return String(t)
	case []any:
		vs := make([]Value, len(t))
		for i, e := range t {
			vs[i] = FromAny(e)
		}
		return Array(vs...)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = FromAny(e)
		}
		return Object(m)
	case map[string]Value:
		return Object(t)
	default:
		return Null()
	}
}

// ToAny converts a Value tree back to plain Go values for JSON marshaling.
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.object))
		for k, e := range v.object {
			out[k] = e.ToAny()
		}
		return out
	default:
		return nil
	}
}
