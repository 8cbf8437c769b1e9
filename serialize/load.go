package serialize

import (
	"errors"
	"os"
)

// SecretResolver returns the value of a named secret.
type SecretResolver func(name string) (string, bool)

// EnvSecrets resolves secrets from the process environment.
func EnvSecrets(name string) (string, bool) { return os.LookupEnv(name) }

// MapSecrets resolves secrets from a fixed map, for tests and embedding.
func MapSecrets(m map[string]string) SecretResolver {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// Codec loads envelope graphs through a Registry.
type Codec struct {
	Registry *Registry
	// Secrets resolves secret references; nil means EnvSecrets.
	Secrets SecretResolver
	// Env is passed unchanged to every Constructor.
	Env any
}

// Load reconstructs the component described by n. Children are loaded
// before their parent; the first failure aborts the whole load.
func (c *Codec) Load(n *Node) (any, error) {
	if c.Registry == nil {
		return nil, errorf("", "codec has no registry")
	}
	if n != nil && n.Type == TypeSecret {
		return nil, errorf("", "top-level node must be a constructor")
	}
	return c.loadNode(n, "")
}

func (c *Codec) loadNode(n *Node, path string) (any, error) {
	if err := checkEnvelope(n, path); err != nil {
		return nil, err
	}
	if n.Type == TypeSecret {
		return c.resolveSecret(n, path)
	}
	entry, ok := c.Registry.Lookup(n.ID)
	if !ok {
		return nil, errorf(path, "unknown id %s", IDString(n.ID))
	}
	kwPath := joinPath(path, "kwargs")
	loaded := make(map[string]any, len(n.Kwargs))
	for k, v := range n.Kwargs {
		out, err := c.loadValue(v, joinPath(kwPath, k))
		if err != nil {
			return nil, err
		}
		loaded[k] = out
	}
	kw := newKwargs(kwPath, loaded)
	obj, err := entry.New(c.Env, kw)
	if err != nil {
		var se *SerializationError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &SerializationError{Path: path, Message: "construct " + IDString(n.ID), Cause: err}
	}
	if err := kw.Done(); err != nil {
		return nil, err
	}
	return obj, nil
}

func (c *Codec) loadValue(v any, path string) (any, error) {
	switch t := v.(type) {
	case *Node:
		return c.loadNode(t, path)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			loaded, err := c.loadValue(item, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = loaded
		}
		return out, nil
	case map[string]any:
		if looksLikeEnvelope(t) {
			n, err := nodeFromMap(t, path)
			if err != nil {
				return nil, err
			}
			return c.loadNode(n, path)
		}
		out := make(map[string]any, len(t))
		for k, item := range t {
			loaded, err := c.loadValue(item, joinPath(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = loaded
		}
		return out, nil
	}
	return v, nil
}

func (c *Codec) resolveSecret(n *Node, path string) (ResolvedSecret, error) {
	if len(n.ID) != 1 {
		return ResolvedSecret{}, errorf(path, "secret id must have exactly one segment, got %d", len(n.ID))
	}
	resolve := c.Secrets
	if resolve == nil {
		resolve = EnvSecrets
	}
	v, ok := resolve(n.ID[0])
	if !ok {
		return ResolvedSecret{}, errorf(path, "secret %s is not set", n.ID[0])
	}
	return ResolvedSecret{Name: n.ID[0], Value: v}, nil
}

func checkEnvelope(n *Node, path string) error {
	if n == nil {
		return errorf(path, "nil node")
	}
	if n.LC != Version {
		return errorf(path, "unsupported envelope version %d", n.LC)
	}
	switch n.Type {
	case TypeConstructor:
	case TypeSecret:
		if len(n.Kwargs) > 0 {
			return errorf(path, "secret reference must not carry kwargs")
		}
	default:
		return errorf(path, "unsupported envelope type %q", n.Type)
	}
	if len(n.ID) == 0 {
		return errorf(path, "envelope has an empty id")
	}
	return nil
}
