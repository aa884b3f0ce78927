package model

import (
	"bytes"
	"encoding/json"
)

// MarshalJSON lets Value round-trip through pgx's JSONB encoding and through
// template-renderer/collaborator contracts that expect plain JSON bytes.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = fromAnyNumberAware(raw)
	return nil
}

// fromAnyNumberAware is like FromAny but also accepts json.Number, which
// UseNumber() produces instead of float64. Each json.Number is converted
// with Float64, so numbers are held as float64 and integers beyond 2^53 are
// rounded; a json.Number that does not convert is kept as a String.
func fromAnyNumberAware(in any) Value {
	switch t := in.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(f)
	case []any:
		vs := make([]Value, len(t))
		for i, e := range t {
			vs[i] = fromAnyNumberAware(e)
		}
		return Array(vs...)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = fromAnyNumberAware(e)
		}
		return Object(m)
	default:
		return FromAny(in)
	}
}
