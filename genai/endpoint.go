package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
)

// ModelDeploymentConfig configures a self-hosted inference endpoint adapter.
type ModelDeploymentConfig struct {
	// Endpoint is the full predict URL of the deployment.
	Endpoint string
	// Model is informational for TGI and reserved for backends that route by
	// model name.
	Model  string
	BestOf int
	// Headers are added to every request before signing.
	Headers map[string]string

	GenerationConfig

	// TGI sampling flags; nil means true.
	DoSample       *bool
	ReturnFullText *bool
	Watermark      *bool
}

// Bool returns a pointer to v, for optional flag fields.
func Bool(v bool) *bool { return &v }

func (c ModelDeploymentConfig) withDefaults() ModelDeploymentConfig {
	if c.BestOf == 0 {
		c.BestOf = 1
	}
	c.Headers = maps.Clone(c.Headers)
	if c.DoSample == nil {
		c.DoSample = Bool(true)
	}
	if c.ReturnFullText == nil {
		c.ReturnFullText = Bool(true)
	}
	if c.Watermark == nil {
		c.Watermark = Bool(true)
	}
	c.GenerationConfig = c.GenerationConfig.withDefaults()
	return c
}

func (c ModelDeploymentConfig) validate() error {
	if c.Endpoint == "" {
		return configError("endpoint is required")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalidParam("endpoint %q is not an http(s) URL", c.Endpoint)
	}
	if c.BestOf < 1 {
		return invalidParam("best_of must be >= 1, got %d", c.BestOf)
	}
	return c.GenerationConfig.validate()
}

func (c ModelDeploymentConfig) baseKwargs() map[string]any {
	kw := map[string]any{
		"endpoint":    c.Endpoint,
		"best_of":     c.BestOf,
		"max_tokens":  c.MaxTokens,
		"temperature": *c.Temperature,
		"top_k":       c.TopK,
		"top_p":       *c.TopP,
	}
	if c.Model != "" {
		kw["model"] = c.Model
	}
	if c.Stop != nil {
		kw["stop"] = append([]string(nil), c.Stop...)
	}
	if len(c.Headers) > 0 {
		kw["headers"] = maps.Clone(c.Headers)
	}
	return kw
}

// modelDeployment is the shared HTTP plumbing of the endpoint family.
type modelDeployment struct {
	cfg         ModelDeploymentConfig
	signer      Signer
	client      *http.Client
	contentType string
	dispatcher  *Dispatcher
}

func newModelDeployment(name string, cfg ModelDeploymentConfig, opts []Option) (*modelDeployment, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	auth, err := o.resolveAuth()
	if err != nil {
		return nil, err
	}
	if auth.Signer == nil {
		return nil, configError("%s requires a request signer", name)
	}
	return &modelDeployment{
		cfg:         cfg,
		signer:      auth.Signer,
		client:      o.httpClient,
		contentType: o.contentType,
		dispatcher:  o.dispatcher(name),
	}, nil
}

// send posts a JSON body to the endpoint. The response must be JSON.
func (m *modelDeployment) send(ctx context.Context, body any) ([]byte, error) {
	raw, err := postJSON(ctx, m.client, jsonRequest{
		URL:         m.cfg.Endpoint,
		ContentType: m.contentType,
		Headers:     m.cfg.Headers,
		Signer:      m.signer,
		Payload:     body,
	})
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("endpoint returned a non-JSON body of %d bytes", len(raw))
	}
	return raw, nil
}

// ModelDeploymentTGI calls a text-generation-inference style endpoint.
type ModelDeploymentTGI struct {
	*modelDeployment
}

// NewModelDeploymentTGI validates cfg and resolves the request signer.
func NewModelDeploymentTGI(cfg ModelDeploymentConfig, opts ...Option) (*ModelDeploymentTGI, error) {
	md, err := newModelDeployment("ModelDeploymentTGI", cfg, opts)
	if err != nil {
		return nil, err
	}
	return &ModelDeploymentTGI{md}, nil
}

// Name returns the adapter type identifier.
func (a *ModelDeploymentTGI) Name() string { return "ModelDeploymentTGI" }

// Config returns a copy of the adapter's configuration.
func (a *ModelDeploymentTGI) Config() ModelDeploymentConfig { return copyDeploymentConfig(a.cfg) }

func (a *ModelDeploymentTGI) defaultParams() Params {
	c := a.cfg
	p := Params{
		"best_of":          c.BestOf,
		"max_new_tokens":   c.MaxTokens,
		"temperature":      *c.Temperature,
		"top_p":            *c.TopP,
		"do_sample":        *c.DoSample,
		"return_full_text": *c.ReturnFullText,
		"watermark":        *c.Watermark,
	}
	// The backend rejects non-positive top_k.
	if c.TopK > 0 {
		p["top_k"] = c.TopK
	}
	return p
}

func (a *ModelDeploymentTGI) invocationParams(call callConfig) (Params, error) {
	params := a.defaultParams()
	stop, err := resolveStop(a.cfg.Stop, call.stop)
	if err != nil {
		return nil, err
	}
	// stop is omitted rather than sent as null.
	if stop != nil {
		params["stop"] = stop
	}
	return params.Merge(call.overrides), nil
}

func requestBody(prompt string, params Params) map[string]any {
	return map[string]any{
		"inputs":     prompt,
		"parameters": params,
	}
}

// Generate posts the prompt and returns generated_text, or the raw response
// body when that field is absent.
func (a *ModelDeploymentTGI) Generate(ctx context.Context, prompt string, opts ...CallOption) (string, error) {
	if prompt == "" {
		return "", invalidParam("prompt must not be empty")
	}
	params, err := a.invocationParams(newCallConfig(opts))
	if err != nil {
		return "", err
	}
	rc := a.dispatcher.newRequest(TaskTextGeneration, params, prompt)
	raw, err := dispatch(ctx, a.dispatcher, rc, func(ctx context.Context) ([]byte, error) {
		return a.send(ctx, requestBody(prompt, params))
	})
	if err != nil {
		return "", err
	}
	return normalizeEndpoint(raw), nil
}

// BatchGenerate issues n sequential requests; the endpoint returns one
// generation per request.
func (a *ModelDeploymentTGI) BatchGenerate(ctx context.Context, prompt string, n int, opts ...CallOption) ([]string, error) {
	if n < 1 {
		return nil, invalidParam("generation count must be >= 1, got %d", n)
	}
	out := make([]string, 0, n)
	for range n {
		text, err := a.Generate(ctx, prompt, opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, nil
}

// SerializationID implements serialize.Serializable.
func (a *ModelDeploymentTGI) SerializationID() []string {
	return []string{Namespace, "llm", "ModelDeploymentTGI"}
}

// SerializationKwargs implements serialize.Serializable. The signer is not
// part of the configuration.
func (a *ModelDeploymentTGI) SerializationKwargs() map[string]any {
	kw := a.cfg.baseKwargs()
	kw["do_sample"] = *a.cfg.DoSample
	kw["return_full_text"] = *a.cfg.ReturnFullText
	kw["watermark"] = *a.cfg.Watermark
	return kw
}

// ModelDeploymentVLLM is a placeholder for high-throughput serving
// endpoints. It can be constructed and persisted, but every call fails with
// UnsupportedOperationError until the backend protocol is settled.
type ModelDeploymentVLLM struct {
	*modelDeployment
}

// NewModelDeploymentVLLM validates cfg and resolves the request signer.
func NewModelDeploymentVLLM(cfg ModelDeploymentConfig, opts ...Option) (*ModelDeploymentVLLM, error) {
	md, err := newModelDeployment("ModelDeploymentVLLM", cfg, opts)
	if err != nil {
		return nil, err
	}
	return &ModelDeploymentVLLM{md}, nil
}

// Name returns the adapter type identifier.
func (a *ModelDeploymentVLLM) Name() string { return "ModelDeploymentVLLM" }

// Config returns a copy of the adapter's configuration.
func (a *ModelDeploymentVLLM) Config() ModelDeploymentConfig { return copyDeploymentConfig(a.cfg) }

// Generate always fails with UnsupportedOperationError.
func (a *ModelDeploymentVLLM) Generate(ctx context.Context, prompt string, opts ...CallOption) (string, error) {
	return "", unsupported("ModelDeploymentVLLM is not supported yet")
}

// BatchGenerate always fails with UnsupportedOperationError.
func (a *ModelDeploymentVLLM) BatchGenerate(ctx context.Context, prompt string, n int, opts ...CallOption) ([]string, error) {
	return nil, unsupported("ModelDeploymentVLLM is not supported yet")
}

// SerializationID implements serialize.Serializable.
func (a *ModelDeploymentVLLM) SerializationID() []string {
	return []string{Namespace, "llm", "ModelDeploymentVLLM"}
}

// SerializationKwargs implements serialize.Serializable.
func (a *ModelDeploymentVLLM) SerializationKwargs() map[string]any {
	return a.cfg.baseKwargs()
}

func copyDeploymentConfig(c ModelDeploymentConfig) ModelDeploymentConfig {
	if c.Stop != nil {
		c.Stop = append([]string(nil), c.Stop...)
	}
	c.Headers = maps.Clone(c.Headers)
	return c
}
