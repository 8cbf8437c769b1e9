package serialize

import (
	"reflect"
	"slices"
)

// Dump converts v and every Serializable reachable through its kwargs into
// envelope nodes.
func Dump(v Serializable) (*Node, error) {
	return dumpNode(v, "")
}

func dumpNode(v Serializable, path string) (*Node, error) {
	if isNil(v) {
		return nil, errorf(path, "nil component")
	}
	id := v.SerializationID()
	if len(id) == 0 {
		return nil, errorf(path, "%T has an empty serialization id", v)
	}
	n := &Node{LC: Version, Type: TypeConstructor, ID: slices.Clone(id)}
	kw := v.SerializationKwargs()
	if len(kw) > 0 {
		n.Kwargs = make(map[string]any, len(kw))
		for k, val := range kw {
			out, err := dumpValue(val, joinPath(joinPath(path, "kwargs"), k))
			if err != nil {
				return nil, err
			}
			n.Kwargs[k] = out
		}
	}
	return n, nil
}

func dumpValue(v any, path string) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *Node:
		return t, nil
	case Serializable:
		return dumpNode(t, path)
	case Secret:
		id := t.SecretID()
		if len(id) == 0 || id[0] == "" {
			return nil, errorf(path, "secret reference without a name")
		}
		return &Node{LC: Version, Type: TypeSecret, ID: slices.Clone(id)}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return dumpValue(rv.Elem().Interface(), path)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			item, err := dumpValue(rv.Index(i).Interface(), indexPath(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, errorf(path, "map keys must be strings, got %s", rv.Type().Key())
		}
		if rv.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			item, err := dumpValue(iter.Value().Interface(), joinPath(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = item
		}
		return out, nil
	}
	return nil, errorf(path, "value of type %T is not serializable", v)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return rv.IsNil()
	}
	return false
}
