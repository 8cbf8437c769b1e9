// Package serialize converts component graphs to and from the versioned
// constructor envelope:
//
//	{"lc": 1, "type": "constructor", "id": ["genbridge", "llm", "GenerativeAI"], "kwargs": {...}}
//
// Components opt in by implementing Serializable. Loading resolves each id
// through an immutable Registry and never executes anything beyond the
// registered constructors.
package serialize

import (
	"fmt"
	"strings"
)

// Version is the envelope format version written to and required in "lc".
const Version = 1

// Envelope types.
const (
	TypeConstructor = "constructor"
	TypeSecret      = "secret"
)

// Node is one serialized component or secret reference. Kwargs values are
// primitives, []any, map[string]any or nested *Node.
type Node struct {
	LC     int            `json:"lc" yaml:"lc"`
	Type   string         `json:"type" yaml:"type"`
	ID     []string       `json:"id" yaml:"id"`
	Kwargs map[string]any `json:"kwargs,omitempty" yaml:"kwargs,omitempty"`
}

// Serializable is implemented by every persistable component. Kwargs must
// hold only public configuration; credentials and live clients never appear.
type Serializable interface {
	SerializationID() []string
	SerializationKwargs() map[string]any
}

// Secret is a kwarg value that is written as a secret reference.
type Secret interface {
	SecretID() []string
}

// SecretRef names a secret without carrying its value.
type SecretRef struct {
	ID []string
}

func (s SecretRef) SecretID() []string { return s.ID }

// ResolvedSecret is what a secret reference loads as. It keeps the name so
// a re-dump writes the reference again, never the value.
type ResolvedSecret struct {
	Name  string
	Value string
}

func (s ResolvedSecret) SecretID() []string { return []string{s.Name} }

func (s ResolvedSecret) String() string { return "secret(" + s.Name + ")" }

// SerializationError reports a failed dump or load. Path locates the
// offending value, e.g. "kwargs.llm.kwargs.temperature".
type SerializationError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SerializationError) Error() string {
	var b strings.Builder
	b.WriteString("serialize")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *SerializationError) Unwrap() error { return e.Cause }

func errorf(path, format string, a ...any) error {
	return &SerializationError{Path: path, Message: fmt.Sprintf(format, a...)}
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func indexPath(base string, i int) string {
	return fmt.Sprintf("%s[%d]", base, i)
}

// IDString renders an id for messages and registry keys.
func IDString(id []string) string {
	return strings.Join(id, ".")
}
