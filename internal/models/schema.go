// server/internal/models/schema.go
package models

import (
	"fmt"

	"sistema-bup-api-server/internal/errs"
	"sistema-bup-api-server/internal/flexible"
)

// Kind is the declared semantic type of a document field.
type Kind int

const (
	KindString     Kind = iota // strict string
	KindFlexString             // string or numeric, stringified
	KindNumber                 // flexible float64
	KindInt                    // flexible integral number
	KindBool
	KindDate // string or native timestamp, normalized
	KindObject
	KindArray
	KindAny
)

func (k Kind) String() string {
	switch k {
	case KindString, KindFlexString:
		return "string"
	case KindNumber:
		return "number"
	case KindInt:
		return "integer"
	case KindBool:
		return "boolean"
	case KindDate:
		return "date"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "any"
	}
}

// Field declares one key of a document. Aliases are tried in order when Key is
// absent, covering renames between schema versions.
type Field struct {
	Key      string
	Aliases  []string
	Kind     Kind
	Required bool
}

// Schema is the declarative description consumed by Decode.
type Schema []Field

func req(key string, kind Kind, aliases ...string) Field {
	return Field{Key: key, Kind: kind, Required: true, Aliases: aliases}
}

func opt(key string, kind Kind, aliases ...string) Field {
	return Field{Key: key, Kind: kind, Aliases: aliases}
}

// Values holds the decoded fields of one object, keyed by Field.Key. Optional
// fields that failed to decode are simply absent.
type Values map[string]any

// Decode applies the schema to raw. path prefixes field names in DecodeError.
func (s Schema) Decode(raw map[string]any, path string) (Values, error) {
	out := make(Values, len(s))
	for _, f := range s {
		rawValue, present := lookup(raw, f)
		if !present || rawValue == nil {
			if f.Required {
				return nil, errs.NewDecodeError(join(path, f.Key), "missing")
			}
			continue
		}
		v, ok := convert(f.Kind, rawValue)
		if !ok {
			if f.Required {
				return nil, errs.NewDecodeError(join(path, f.Key), fmt.Sprintf("expected %s, got %T", f.Kind, rawValue))
			}
			continue
		}
		out[f.Key] = v
	}
	return out, nil
}

func lookup(raw map[string]any, f Field) (any, bool) {
	if v, ok := raw[f.Key]; ok && v != nil {
		return v, true
	}
	for _, alias := range f.Aliases {
		if v, ok := raw[alias]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func convert(kind Kind, v any) (any, bool) {
	switch kind {
	case KindString:
		s, ok := v.(string)
		return s, ok
	case KindFlexString:
		return flexible.String(v)
	case KindNumber:
		return flexible.Number(v)
	case KindInt:
		return flexible.Int(v)
	case KindBool:
		return flexible.Bool(v)
	case KindDate:
		d := flexible.Date(v)
		return d, d != ""
	case KindObject:
		m, ok := v.(map[string]any)
		return m, ok
	case KindArray:
		a, ok := v.([]any)
		return a, ok
	default:
		return v, true
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func (v Values) Text(key string) string {
	s, _ := v[key].(string)
	return s
}

func (v Values) TextPtr(key string) *string {
	s, ok := v[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func (v Values) Number(key string) *float64 {
	n, ok := v[key].(float64)
	if !ok {
		return nil
	}
	return &n
}

func (v Values) Int(key string) *int {
	n, ok := v[key].(int)
	if !ok {
		return nil
	}
	return &n
}

func (v Values) Bool(key string) *bool {
	b, ok := v[key].(bool)
	if !ok {
		return nil
	}
	return &b
}

func (v Values) Object(key string) map[string]any {
	m, _ := v[key].(map[string]any)
	return m
}

func (v Values) Array(key string) []any {
	a, _ := v[key].([]any)
	return a
}

func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// decodeObject decodes an optional nested object; a nested failure drops the
// whole object rather than failing the parent document.
func decodeObject(parent Values, key string, schema Schema) (Values, bool) {
	m := parent.Object(key)
	if m == nil {
		return nil, false
	}
	vals, err := schema.Decode(m, key)
	if err != nil {
		return nil, false
	}
	return vals, true
}

// numbers converts an array of flexible numerics, skipping entries that are not numeric.
func numbers(raw []any) []float64 {
	if raw == nil {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, item := range raw {
		if n, ok := flexible.Number(item); ok {
			out = append(out, n)
		}
	}
	return out
}

func firstNumber(candidates ...*float64) *float64 {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

func firstString(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return c
		}
	}
	return nil
}
