package audithash

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
)

// kv is an ordered key/value pair. Canonicalized structs and maps are
// rendered as a sorted slice of kv pairs rather than a native Go map so
// that the resulting msgpack array preserves a deterministic field order
// regardless of struct declaration order or map iteration order.
type kv struct {
	K string
	V any
}

// canonicalize converts v into a tree of only maps-as-sorted-[]kv, slices,
// and scalar leaves, suitable for deterministic msgpack encoding.
func canonicalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return canonicalizeValue(reflect.ValueOf(v))
}

func canonicalizeValue(rv reflect.Value) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return canonicalizeValue(rv.Elem())

	case reflect.Struct:
		return canonicalizeStruct(rv)

	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		return canonicalizeMap(rv)

	case reflect.Slice:
		if rv.IsNil() {
			return []any{}, nil
		}
		return canonicalizeSlice(rv)

	case reflect.Array:
		return canonicalizeSlice(rv)

	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return rv.Interface(), nil

	default:
		return nil, &EncodingError{
			Type:   rv.Type().String(),
			Reason: fmt.Sprintf("unsupported kind %s", rv.Kind()),
		}
	}
}

// canonicalizeStruct special-cases a handful of well-known value types
// (time.Time, uuid.UUID) that would otherwise canonicalize into their
// private internal fields, then falls back to field-by-field encoding.
func canonicalizeStruct(rv reflect.Value) (any, error) {
	switch t := rv.Interface().(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), nil
	case uuid.UUID:
		return t.String(), nil
	}

	rt := rv.Type()
	pairs := make([]kv, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("msgpack"); ok && tag != "" && tag != "-" {
			name = tag
		}
		val, err := canonicalizeValue(rv.Field(i))
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, kv{K: name, V: val})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].K < pairs[j].K })
	return pairs, nil
}

func canonicalizeMap(rv reflect.Value) (any, error) {
	keys := rv.MapKeys()
	pairs := make([]kv, 0, len(keys))
	for _, k := range keys {
		val, err := canonicalizeValue(rv.MapIndex(k))
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, kv{K: fmt.Sprintf("%v", k.Interface()), V: val})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].K < pairs[j].K })
	return pairs, nil
}

func canonicalizeSlice(rv reflect.Value) (any, error) {
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		val, err := canonicalizeValue(rv.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

// EncodingError reports that a field could not be canonicalized for
// hashing.
type EncodingError struct {
	Type   string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("audithash: cannot encode value of type %s: %s", e.Type, e.Reason)
}
