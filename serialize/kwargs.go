package serialize

import (
	"math"
	"reflect"
	"sort"
	"strings"
)

// Kwargs is the loaded keyword-argument map handed to a Constructor. The
// typed accessors record the first failure instead of returning it, and Done
// reports that failure or any key no accessor consumed.
type Kwargs struct {
	path   string
	values map[string]any
	used   map[string]bool
	err    error
}

// NewKwargs wraps values for a constructor.
func NewKwargs(values map[string]any) *Kwargs {
	return newKwargs("kwargs", values)
}

func newKwargs(path string, values map[string]any) *Kwargs {
	if values == nil {
		values = map[string]any{}
	}
	return &Kwargs{path: path, values: values, used: make(map[string]bool, len(values))}
}

// Has reports whether key is present with a non-nil value.
func (k *Kwargs) Has(key string) bool {
	v, ok := k.values[key]
	return ok && v != nil
}

// Value returns the raw value for key and marks it consumed.
func (k *Kwargs) Value(key string) any {
	k.used[key] = true
	return k.values[key]
}

func (k *Kwargs) fail(key, format string, a ...any) {
	if k.err == nil {
		k.err = errorf(joinPath(k.path, key), format, a...)
	}
}

// String returns the string at key, or "" if absent.
func (k *Kwargs) String(key string) string {
	v := k.Value(key)
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case ResolvedSecret:
		return t.Value
	}
	k.fail(key, "expected string, got %T", v)
	return ""
}

// Secret returns the resolved secret at key. Plain strings are rejected so
// credentials never live inline in a persisted graph.
func (k *Kwargs) Secret(key string) (ResolvedSecret, bool) {
	v := k.Value(key)
	switch t := v.(type) {
	case nil:
		return ResolvedSecret{}, false
	case ResolvedSecret:
		return t, true
	}
	k.fail(key, "expected a secret reference, got %T", v)
	return ResolvedSecret{}, false
}

// Int returns the integer at key, or 0 if absent.
func (k *Kwargs) Int(key string) int {
	v := k.Value(key)
	switch t := v.(type) {
	case nil:
		return 0
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		if t == math.Trunc(t) {
			return int(t)
		}
	}
	k.fail(key, "expected integer, got %v (%T)", v, v)
	return 0
}

// Float returns the number at key, or 0 if absent.
func (k *Kwargs) Float(key string) float64 {
	if p := k.FloatPtr(key); p != nil {
		return *p
	}
	return 0
}

// FloatPtr returns the number at key, or nil if absent.
func (k *Kwargs) FloatPtr(key string) *float64 {
	v := k.Value(key)
	var f float64
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	default:
		k.fail(key, "expected number, got %T", v)
		return nil
	}
	return &f
}

// Bool returns the boolean at key, or false if absent.
func (k *Kwargs) Bool(key string) bool {
	if p := k.BoolPtr(key); p != nil {
		return *p
	}
	return false
}

// BoolPtr returns the boolean at key, or nil if absent.
func (k *Kwargs) BoolPtr(key string) *bool {
	v := k.Value(key)
	if v == nil {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		k.fail(key, "expected bool, got %T", v)
		return nil
	}
	return &b
}

// Strings returns the string list at key, or nil if absent. A present empty
// list yields a non-nil empty slice.
func (k *Kwargs) Strings(key string) []string {
	v := k.Value(key)
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string{}, t...)
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				k.fail(key, "element %d: expected string, got %T", i, item)
				return nil
			}
			out = append(out, s)
		}
		return out
	}
	k.fail(key, "expected list of strings, got %T", v)
	return nil
}

// Map returns the object at key, or nil if absent.
func (k *Kwargs) Map(key string) map[string]any {
	v := k.Value(key)
	if v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		k.fail(key, "expected object, got %T", v)
	}
	return m
}

// StringMap returns the object at key with string values, or nil if absent.
func (k *Kwargs) StringMap(key string) map[string]string {
	m := k.Map(key)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for name, v := range m {
		s, ok := v.(string)
		if !ok {
			k.fail(key, "%s: expected string, got %T", name, v)
			return nil
		}
		out[name] = s
	}
	return out
}

// Keys returns the present keys in lexical order.
func (k *Kwargs) Keys() []string {
	keys := make([]string, 0, len(k.values))
	for key := range k.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Err returns the first accessor failure.
func (k *Kwargs) Err() error { return k.err }

// Done returns the first accessor failure, or an error naming every key that
// was never consumed.
func (k *Kwargs) Done() error {
	if k.err != nil {
		return k.err
	}
	var unknown []string
	for key := range k.values {
		if !k.used[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return errorf(k.path, "unknown kwargs: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// As returns the value at key asserted to T, which is typically a loaded
// child component type. Absent keys yield the zero value.
func As[T any](k *Kwargs, key string) T {
	var zero T
	v := k.Value(key)
	if v == nil {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		k.fail(key, "expected %s, got %T", reflect.TypeFor[T](), v)
		return zero
	}
	return t
}
