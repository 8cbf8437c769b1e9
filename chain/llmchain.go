package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/martinemde/genbridge/genai"
)

// DefaultOutputKey names the LLMChain result.
const DefaultOutputKey = "text"

// LLMChain formats a prompt template and sends it to one adapter.
type LLMChain struct {
	Prompt    *PromptTemplate
	LLM       genai.Adapter
	OutputKey string
}

// NewLLMChain checks that both collaborators are present.
func NewLLMChain(prompt *PromptTemplate, llm genai.Adapter) (*LLMChain, error) {
	if prompt == nil {
		return nil, errors.New("llm chain requires a prompt")
	}
	if llm == nil {
		return nil, errors.New("llm chain requires an llm")
	}
	return &LLMChain{Prompt: prompt.Clone(), LLM: llm, OutputKey: DefaultOutputKey}, nil
}

// InputKeys returns the prompt variables the caller must supply.
func (c *LLMChain) InputKeys() []string {
	return append([]string(nil), c.Prompt.InputVariables...)
}

// Run formats the prompt from values and returns {OutputKey: generation}.
func (c *LLMChain) Run(ctx context.Context, values map[string]any, opts ...genai.CallOption) (map[string]string, error) {
	prompt, err := c.Prompt.Format(values)
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}
	text, err := c.LLM.Generate(ctx, prompt, opts...)
	if err != nil {
		return nil, err
	}
	key := c.OutputKey
	if key == "" {
		key = DefaultOutputKey
	}
	return map[string]string{key: text}, nil
}

func (c *LLMChain) SerializationID() []string {
	return []string{genai.Namespace, "chains", "LLMChain"}
}

// SerializationKwargs implements serialize.Serializable. output_key is only
// written when it differs from the default.
func (c *LLMChain) SerializationKwargs() map[string]any {
	kw := map[string]any{
		"prompt": c.Prompt,
		"llm":    c.LLM,
	}
	if c.OutputKey != "" && c.OutputKey != DefaultOutputKey {
		kw["output_key"] = c.OutputKey
	}
	return kw
}
