// Package chain provides the composable components an orchestration layer
// persists alongside adapters: prompt templates, runnable compositions and
// LLMChain. Executing arbitrary graphs is left to the caller.
package chain

import (
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/martinemde/genbridge/genai"
)

// FormatFString is the only supported template syntax: {name} placeholders
// with {{ and }} as literal braces.
const FormatFString = "f-string"

// PromptTemplate renders a prompt from named variables.
type PromptTemplate struct {
	Template         string
	InputVariables   []string
	PartialVariables map[string]string
	TemplateFormat   string
}

// NewPromptTemplate parses template and infers its input variables in
// lexical order.
func NewPromptTemplate(template string) (*PromptTemplate, error) {
	vars, err := templateVariables(template)
	if err != nil {
		return nil, err
	}
	return &PromptTemplate{
		Template:         template,
		InputVariables:   vars,
		PartialVariables: map[string]string{},
		TemplateFormat:   FormatFString,
	}, nil
}

type segment struct {
	text     string
	variable bool
}

func parseTemplate(template string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
	)
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unclosed '{' at offset %d", i)
			}
			name := strings.TrimSpace(template[i+1 : i+1+end])
			if name == "" || strings.ContainsAny(name, "{") {
				return nil, fmt.Errorf("invalid placeholder at offset %d", i)
			}
			if lit.Len() > 0 {
				segs = append(segs, segment{text: lit.String()})
				lit.Reset()
			}
			segs = append(segs, segment{text: name, variable: true})
			i += end + 1
		case c == '}':
			return nil, fmt.Errorf("single '}' at offset %d", i)
		default:
			lit.WriteByte(c)
		}
	}
	if lit.Len() > 0 {
		segs = append(segs, segment{text: lit.String()})
	}
	return segs, nil
}

func templateVariables(template string) ([]string, error) {
	segs, err := parseTemplate(template)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	vars := []string{}
	for _, s := range segs {
		if s.variable && !seen[s.text] {
			seen[s.text] = true
			vars = append(vars, s.text)
		}
	}
	sort.Strings(vars)
	return vars, nil
}

// Format renders the template. Partial variables fill in values missing
// from values; any other missing variable is an error.
func (p *PromptTemplate) Format(values map[string]any) (string, error) {
	if p.TemplateFormat != "" && p.TemplateFormat != FormatFString {
		return "", fmt.Errorf("unsupported template format %q", p.TemplateFormat)
	}
	segs, err := parseTemplate(p.Template)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, s := range segs {
		if !s.variable {
			b.WriteString(s.text)
			continue
		}
		if v, ok := values[s.text]; ok {
			fmt.Fprint(&b, v)
			continue
		}
		if v, ok := p.PartialVariables[s.text]; ok {
			b.WriteString(v)
			continue
		}
		return "", fmt.Errorf("missing value for template variable %q", s.text)
	}
	return b.String(), nil
}

// SerializationID implements serialize.Serializable.
func (p *PromptTemplate) SerializationID() []string {
	return []string{genai.Namespace, "prompts", "PromptTemplate"}
}

// SerializationKwargs implements serialize.Serializable.
func (p *PromptTemplate) SerializationKwargs() map[string]any {
	partials := map[string]any{}
	for k, v := range p.PartialVariables {
		partials[k] = v
	}
	format := p.TemplateFormat
	if format == "" {
		format = FormatFString
	}
	return map[string]any{
		"template":          p.Template,
		"input_variables":   append([]string{}, p.InputVariables...),
		"partial_variables": partials,
		"template_format":   format,
	}
}

// Clone returns a deep copy of p.
func (p *PromptTemplate) Clone() *PromptTemplate {
	c := *p
	c.InputVariables = append([]string(nil), p.InputVariables...)
	c.PartialVariables = maps.Clone(p.PartialVariables)
	return &c
}
