package chain

import (
	"errors"
	"maps"

	"github.com/martinemde/genbridge/genai"
)

// RunnablePassthrough forwards its input unchanged.
type RunnablePassthrough struct{}

func (RunnablePassthrough) SerializationID() []string {
	return []string{genai.Namespace, "runnables", "RunnablePassthrough"}
}

func (RunnablePassthrough) SerializationKwargs() map[string]any { return nil }

// RunnableParallel fans its input out to named steps.
type RunnableParallel struct {
	Steps map[string]any
}

// NewRunnableParallel copies steps.
func NewRunnableParallel(steps map[string]any) *RunnableParallel {
	return &RunnableParallel{Steps: maps.Clone(steps)}
}

func (p *RunnableParallel) SerializationID() []string {
	return []string{genai.Namespace, "runnables", "RunnableParallel"}
}

func (p *RunnableParallel) SerializationKwargs() map[string]any {
	return map[string]any{"steps": maps.Clone(p.Steps)}
}

// RunnableSequence is an ordered pipeline of at least two steps.
type RunnableSequence struct {
	First  any
	Middle []any
	Last   any
}

// ErrShortSequence is returned when a sequence would have fewer than two
// steps.
var ErrShortSequence = errors.New("a sequence needs at least two steps")

// Pipe composes steps into a sequence. Nested sequences are flattened so
// that a | (b | c) and (a | b) | c have the same shape.
func Pipe(steps ...any) (*RunnableSequence, error) {
	var flat []any
	for _, s := range steps {
		if s == nil {
			return nil, errors.New("nil step in sequence")
		}
		if seq, ok := s.(*RunnableSequence); ok {
			flat = append(flat, seq.Steps()...)
			continue
		}
		flat = append(flat, s)
	}
	return newSequence(flat)
}

func newSequence(steps []any) (*RunnableSequence, error) {
	if len(steps) < 2 {
		return nil, ErrShortSequence
	}
	return &RunnableSequence{
		First:  steps[0],
		Middle: append([]any{}, steps[1:len(steps)-1]...),
		Last:   steps[len(steps)-1],
	}, nil
}

// Steps returns every step in order.
func (s *RunnableSequence) Steps() []any {
	out := make([]any, 0, len(s.Middle)+2)
	out = append(out, s.First)
	out = append(out, s.Middle...)
	return append(out, s.Last)
}

func (s *RunnableSequence) SerializationID() []string {
	return []string{genai.Namespace, "runnables", "RunnableSequence"}
}

func (s *RunnableSequence) SerializationKwargs() map[string]any {
	return map[string]any{
		"first":  s.First,
		"middle": append([]any{}, s.Middle...),
		"last":   s.Last,
	}
}
