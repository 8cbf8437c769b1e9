package genai

import (
	"context"
	"maps"
	"sync"
)

// DefaultCloudModel is used when GenerativeAIConfig.Model is empty.
const DefaultCloudModel = ModelCohereCommand

// GenerativeAIConfig configures the cloud-service adapter. It is copied at
// construction and immutable afterwards.
type GenerativeAIConfig struct {
	Task            Task
	Model           string
	CompartmentID   string
	ServiceEndpoint string

	GenerationConfig
	FrequencyPenalty *float64
	PresencePenalty  *float64
	// Truncate is one of TruncateNone, TruncateStart, TruncateEnd or empty.
	Truncate string

	// Summarization controls.
	Length            Length
	Format            Format
	Extractiveness    Extractiveness
	AdditionalCommand string

	// EndpointKwargs are passed opaquely with every call.
	EndpointKwargs map[string]any
	// ClientKwargs are used once, when the client handle is built.
	ClientKwargs map[string]any
}

func (c GenerativeAIConfig) withDefaults() GenerativeAIConfig {
	if c.Task == "" {
		c.Task = TaskTextGeneration
	}
	if c.Model == "" {
		c.Model = DefaultCloudModel
	}
	if c.ServiceEndpoint == "" {
		c.ServiceEndpoint = DefaultServiceEndpoint
	}
	if c.Length == "" {
		c.Length = LengthAuto
	}
	if c.Format == "" {
		c.Format = FormatParagraph
	}
	if c.Extractiveness == "" {
		c.Extractiveness = ExtractivenessAuto
	}
	c.GenerationConfig = c.GenerationConfig.withDefaults()
	c.EndpointKwargs = maps.Clone(c.EndpointKwargs)
	c.ClientKwargs = maps.Clone(c.ClientKwargs)
	return c
}

func (c GenerativeAIConfig) validate() error {
	if !validTask(c.Task) {
		return invalidParam("unsupported task %q", c.Task)
	}
	if c.CompartmentID == "" {
		return configError("compartment_id is required")
	}
	if err := c.GenerationConfig.validate(); err != nil {
		return err
	}
	if err := validatePenalty("frequency_penalty", c.FrequencyPenalty); err != nil {
		return err
	}
	if err := validatePenalty("presence_penalty", c.PresencePenalty); err != nil {
		return err
	}
	if !validTruncate(c.Truncate) {
		return invalidParam("unsupported truncate mode %q", c.Truncate)
	}
	if !validLength(c.Length) {
		return invalidParam("unsupported length %q", c.Length)
	}
	if !validFormat(c.Format) {
		return invalidParam("unsupported format %q", c.Format)
	}
	if !validExtractiveness(c.Extractiveness) {
		return invalidParam("unsupported extractiveness %q", c.Extractiveness)
	}
	return nil
}

// GenerativeAI is the adapter for the managed cloud generative-AI service.
type GenerativeAI struct {
	cfg        GenerativeAIConfig
	dispatcher *Dispatcher
	handle     *clientHandle
}

// NewGenerativeAI validates cfg and resolves credentials. The client handle
// itself is created on first use.
func NewGenerativeAI(cfg GenerativeAIConfig, opts ...Option) (*GenerativeAI, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	auth, err := o.resolveAuth()
	if err != nil {
		return nil, err
	}
	if info := ModelFor(cfg.Model); info != nil && !info.Supports(cfg.Task) {
		l := o.log()
		l.Debug().Str("model", cfg.Model).Str("task", string(cfg.Task)).Msg("model is not catalogued for task")
	}
	return &GenerativeAI{
		cfg:        cfg,
		dispatcher: o.dispatcher("GenerativeAI"),
		handle:     newClientHandle(o, auth, cfg.ServiceEndpoint, cfg.ClientKwargs),
	}, nil
}

// Name returns the adapter type identifier.
func (a *GenerativeAI) Name() string { return "GenerativeAI" }

// Config returns a copy of the adapter's configuration.
func (a *GenerativeAI) Config() GenerativeAIConfig {
	c := a.cfg
	if a.cfg.Stop != nil {
		c.Stop = append([]string(nil), a.cfg.Stop...)
	}
	c.EndpointKwargs = maps.Clone(a.cfg.EndpointKwargs)
	c.ClientKwargs = maps.Clone(a.cfg.ClientKwargs)
	return c
}

func (a *GenerativeAI) defaultParams() Params {
	c := a.cfg
	if c.Task == TaskSummarize {
		return Params{
			"serving_mode":       onDemand(c.Model),
			"compartment_id":     c.CompartmentID,
			"temperature":        *c.Temperature,
			"length":             string(c.Length),
			"format":             string(c.Format),
			"extractiveness":     string(c.Extractiveness),
			"additional_command": c.AdditionalCommand,
		}
	}
	p := Params{
		"compartment_id": c.CompartmentID,
		"max_tokens":     c.MaxTokens,
		"temperature":    *c.Temperature,
		"top_k":          c.TopK,
		"top_p":          *c.TopP,
		"serving_mode":   onDemand(c.Model),
	}
	if c.FrequencyPenalty != nil {
		p["frequency_penalty"] = *c.FrequencyPenalty
	}
	if c.PresencePenalty != nil {
		p["presence_penalty"] = *c.PresencePenalty
	}
	if c.Truncate != "" {
		p["truncate"] = c.Truncate
	}
	return p
}

func (a *GenerativeAI) invocationParams(call callConfig, n int) (Params, error) {
	params := a.defaultParams()
	if a.cfg.Task == TaskSummarize {
		// Summarization ignores stop words, configured or call-time.
		overrides := maps.Clone(call.overrides)
		delete(overrides, "stop")
		delete(overrides, "stop_sequences")
		return params.Merge(overrides), nil
	}
	stop, err := resolveStop(a.cfg.Stop, call.stop)
	if err != nil {
		return nil, err
	}
	if stop != nil {
		params["stop_sequences"] = stop
	}
	params = params.Merge(call.overrides)
	if n > 1 {
		params["num_generations"] = n
	}
	return params, nil
}

// Generate returns one generation, or the summary for TaskSummarize.
func (a *GenerativeAI) Generate(ctx context.Context, prompt string, opts ...CallOption) (string, error) {
	out, err := a.generate(ctx, prompt, newCallConfig(opts), 1)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// BatchGenerate returns n generations. It is unsupported for TaskSummarize.
func (a *GenerativeAI) BatchGenerate(ctx context.Context, prompt string, n int, opts ...CallOption) ([]string, error) {
	if a.cfg.Task == TaskSummarize {
		return nil, unsupported("task=%s does not support batch generation", TaskSummarize)
	}
	if n < 1 {
		return nil, invalidParam("generation count must be >= 1, got %d", n)
	}
	return a.generate(ctx, prompt, newCallConfig(opts), n)
}

func (a *GenerativeAI) generate(ctx context.Context, prompt string, call callConfig, n int) ([]string, error) {
	if prompt == "" {
		return nil, invalidParam("prompt must not be empty")
	}
	params, err := a.invocationParams(call, n)
	if err != nil {
		return nil, err
	}
	client, err := a.handle.get()
	if err != nil {
		return nil, err
	}
	rc := a.dispatcher.newRequest(a.cfg.Task, params, prompt)

	if a.cfg.Task == TaskSummarize {
		env, err := dispatch(ctx, a.dispatcher, rc, func(ctx context.Context) (*SummarizeTextResult, error) {
			details := params.Clone()
			details["input"] = prompt
			return client.SummarizeText(ctx, details, a.cfg.EndpointKwargs)
		})
		if err != nil {
			return nil, err
		}
		summary, err := normalizeSummary(rc, env)
		if err != nil {
			return nil, err
		}
		return []string{summary}, nil
	}

	env, err := dispatch(ctx, a.dispatcher, rc, func(ctx context.Context) (*GenerateTextResult, error) {
		details := params.Clone()
		details["prompts"] = []string{prompt}
		return client.GenerateText(ctx, details, a.cfg.EndpointKwargs)
	})
	if err != nil {
		return nil, err
	}
	return normalizeGeneration(rc, env, n)
}

// SerializationID implements serialize.Serializable.
func (a *GenerativeAI) SerializationID() []string {
	return []string{Namespace, "llm", "GenerativeAI"}
}

// SerializationKwargs implements serialize.Serializable. Credentials and the
// client handle are not part of the configuration.
func (a *GenerativeAI) SerializationKwargs() map[string]any {
	c := a.cfg
	kw := map[string]any{
		"task":               string(c.Task),
		"model":              c.Model,
		"compartment_id":     c.CompartmentID,
		"service_endpoint":   c.ServiceEndpoint,
		"max_tokens":         c.MaxTokens,
		"temperature":        *c.Temperature,
		"top_k":              c.TopK,
		"top_p":              *c.TopP,
		"length":             string(c.Length),
		"format":             string(c.Format),
		"extractiveness":     string(c.Extractiveness),
		"additional_command": c.AdditionalCommand,
	}
	if c.Stop != nil {
		kw["stop"] = append([]string(nil), c.Stop...)
	}
	if c.FrequencyPenalty != nil {
		kw["frequency_penalty"] = *c.FrequencyPenalty
	}
	if c.PresencePenalty != nil {
		kw["presence_penalty"] = *c.PresencePenalty
	}
	if c.Truncate != "" {
		kw["truncate"] = c.Truncate
	}
	if len(c.EndpointKwargs) > 0 {
		kw["endpoint_kwargs"] = maps.Clone(c.EndpointKwargs)
	}
	if len(c.ClientKwargs) > 0 {
		kw["client_kwargs"] = maps.Clone(c.ClientKwargs)
	}
	return kw
}

// clientHandle lazily builds a CloudClient at most once.
type clientHandle struct {
	mu      sync.Mutex
	client  CloudClient
	factory CloudClientFactory
	cfg     CloudClientConfig
}

func newClientHandle(o *options, auth Auth, endpoint string, clientKwargs map[string]any) *clientHandle {
	return &clientHandle{
		factory: o.clientFactory,
		cfg: CloudClientConfig{
			Auth:            auth,
			ServiceEndpoint: endpoint,
			ClientKwargs:    clientKwargs,
			HTTPClient:      o.httpClient,
		},
	}
}

func (h *clientHandle) get() (CloudClient, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client != nil {
		return h.client, nil
	}
	c, err := h.factory(h.cfg)
	if err != nil {
		if IsConfiguration(err) {
			return nil, err
		}
		return nil, &ConfigurationError{SDKError{Message: "create cloud client", Cause: err}}
	}
	h.client = c
	return c, nil
}
