package serialize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

// MarshalJSON renders n as indented JSON.
func MarshalJSON(n *Node) ([]byte, error) {
	return encodeJSON(n, "  ")
}

// CanonicalJSON renders n as compact JSON with sorted object keys. Equal
// graphs produce equal bytes.
func CanonicalJSON(n *Node) ([]byte, error) {
	return encodeJSON(n, "")
}

func encodeJSON(n *Node, indent string) ([]byte, error) {
	if n == nil {
		return nil, errorf("", "nil node")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(n); err != nil {
		return nil, &SerializationError{Message: "encode json", Cause: err}
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ParseJSON decodes an envelope, rebuilding nested envelopes as *Node.
func ParseJSON(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &SerializationError{Message: "decode json", Cause: err}
	}
	if dec.More() {
		return nil, errorf("", "trailing data after envelope")
	}
	return nodeFromAny(raw)
}

// MarshalYAML renders n as YAML.
func MarshalYAML(n *Node) ([]byte, error) {
	if n == nil {
		return nil, errorf("", "nil node")
	}
	b, err := yaml.Marshal(n)
	if err != nil {
		return nil, &SerializationError{Message: "encode yaml", Cause: err}
	}
	return b, nil
}

// ParseYAML decodes a YAML envelope.
func ParseYAML(data []byte) (*Node, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &SerializationError{Message: "decode yaml", Cause: err}
	}
	return nodeFromAny(raw)
}

// Fingerprint returns the xxhash64 of the canonical JSON form, in hex.
func Fingerprint(n *Node) (string, error) {
	b, err := CanonicalJSON(n)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(b)), nil
}

func nodeFromAny(raw any) (*Node, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errorf("", "envelope must be an object, got %T", raw)
	}
	return NodeFromMap(m)
}

// NodeFromMap converts a generic decoded object (from JSON, YAML or TOML)
// into a Node.
func NodeFromMap(m map[string]any) (*Node, error) {
	return nodeFromMap(m, "")
}

func looksLikeEnvelope(m map[string]any) bool {
	_, lc := m["lc"]
	_, typ := m["type"]
	_, id := m["id"]
	return lc && typ && id
}

func nodeFromMap(m map[string]any, path string) (*Node, error) {
	n := &Node{}
	for k, v := range m {
		switch k {
		case "lc":
			lc, ok := normalizeNumber(v).(int)
			if !ok {
				return nil, errorf(joinPath(path, "lc"), "expected integer, got %v", v)
			}
			n.LC = lc
		case "type":
			s, ok := v.(string)
			if !ok {
				return nil, errorf(joinPath(path, "type"), "expected string, got %T", v)
			}
			n.Type = s
		case "id":
			id, err := stringList(v, joinPath(path, "id"))
			if err != nil {
				return nil, err
			}
			n.ID = id
		case "kwargs":
			if v == nil {
				continue
			}
			kw, ok := v.(map[string]any)
			if !ok {
				return nil, errorf(joinPath(path, "kwargs"), "expected object, got %T", v)
			}
			n.Kwargs = make(map[string]any, len(kw))
			for key, item := range kw {
				out, err := convertValue(item, joinPath(joinPath(path, "kwargs"), key))
				if err != nil {
					return nil, err
				}
				n.Kwargs[key] = out
			}
		default:
			return nil, errorf(path, "unexpected envelope key %q", k)
		}
	}
	if err := checkEnvelope(n, path); err != nil {
		return nil, err
	}
	return n, nil
}

func convertValue(v any, path string) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if looksLikeEnvelope(t) {
			return nodeFromMap(t, path)
		}
		out := make(map[string]any, len(t))
		for k, item := range t {
			c, err := convertValue(item, joinPath(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			c, err := convertValue(item, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return normalizeNumber(v), nil
}

// normalizeNumber maps every decoded numeric representation to int when
// integral and float64 otherwise. Non-numbers pass through.
func normalizeNumber(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 0); err == nil {
			return int(i)
		}
		f, err := t.Float64()
		if err != nil {
			return string(t)
		}
		return normalizeNumber(f)
	case int64:
		return int(t)
	case uint64:
		if t <= math.MaxInt {
			return int(t)
		}
		return float64(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int(t)
		}
		return t
	}
	return v
}

func stringList(v any, path string) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), nil
	case []any:
		out := make([]string, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, errorf(indexPath(path, i), "expected string, got %T", item)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, errorf(path, "expected list of strings, got %T", v)
}
