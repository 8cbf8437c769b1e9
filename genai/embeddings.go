package genai

import (
	"context"
	"maps"
)

// Embedding defaults.
const (
	DefaultEmbeddingModel     = ModelCohereEmbedLight
	DefaultEmbeddingBatchSize = 96
)

// GenerativeAIEmbeddingsConfig configures the cloud embedding component.
type GenerativeAIEmbeddingsConfig struct {
	Model           string
	CompartmentID   string
	ServiceEndpoint string
	Truncate        string
	// BatchSize bounds the number of inputs per request.
	BatchSize    int
	ClientKwargs map[string]any
}

// GenerativeAIEmbeddings embeds texts with the cloud service.
type GenerativeAIEmbeddings struct {
	cfg        GenerativeAIEmbeddingsConfig
	dispatcher *Dispatcher
	handle     *clientHandle
}

// NewGenerativeAIEmbeddings validates cfg and resolves credentials.
func NewGenerativeAIEmbeddings(cfg GenerativeAIEmbeddingsConfig, opts ...Option) (*GenerativeAIEmbeddings, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}
	if cfg.ServiceEndpoint == "" {
		cfg.ServiceEndpoint = DefaultServiceEndpoint
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultEmbeddingBatchSize
	}
	cfg.ClientKwargs = maps.Clone(cfg.ClientKwargs)
	if cfg.CompartmentID == "" {
		return nil, configError("compartment_id is required")
	}
	if cfg.BatchSize < 1 {
		return nil, invalidParam("batch_size must be >= 1, got %d", cfg.BatchSize)
	}
	if !validTruncate(cfg.Truncate) {
		return nil, invalidParam("unsupported truncate mode %q", cfg.Truncate)
	}
	o := newOptions(opts)
	auth, err := o.resolveAuth()
	if err != nil {
		return nil, err
	}
	return &GenerativeAIEmbeddings{
		cfg:        cfg,
		dispatcher: o.dispatcher("GenerativeAIEmbeddings"),
		handle:     newClientHandle(o, auth, cfg.ServiceEndpoint, cfg.ClientKwargs),
	}, nil
}

// Config returns a copy of the component's configuration.
func (e *GenerativeAIEmbeddings) Config() GenerativeAIEmbeddingsConfig {
	c := e.cfg
	c.ClientKwargs = maps.Clone(e.cfg.ClientKwargs)
	return c
}

// EmbedDocuments embeds texts in batches of at most BatchSize.
func (e *GenerativeAIEmbeddings) EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, invalidParam("no texts to embed")
	}
	client, err := e.handle.get()
	if err != nil {
		return nil, err
	}
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(texts))
		batch := texts[start:end]

		params := Params{
			"serving_mode":   onDemand(e.cfg.Model),
			"compartment_id": e.cfg.CompartmentID,
		}
		if e.cfg.Truncate != "" {
			params["truncate"] = e.cfg.Truncate
		}
		rc := e.dispatcher.newRequest(taskEmbedding, params, batch[0])
		env, err := dispatch(ctx, e.dispatcher, rc, func(ctx context.Context) (*EmbedTextResult, error) {
			details := params.Clone()
			details["inputs"] = batch
			return client.EmbedText(ctx, details, nil)
		})
		if err != nil {
			return nil, err
		}
		vecs, err := normalizeEmbeddings(rc, env, len(batch))
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// EmbedQuery embeds a single text.
func (e *GenerativeAIEmbeddings) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	vecs, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// SerializationID implements serialize.Serializable.
func (e *GenerativeAIEmbeddings) SerializationID() []string {
	return []string{Namespace, "llm", "GenerativeAIEmbeddings"}
}

// SerializationKwargs implements serialize.Serializable.
func (e *GenerativeAIEmbeddings) SerializationKwargs() map[string]any {
	kw := map[string]any{
		"model":            e.cfg.Model,
		"compartment_id":   e.cfg.CompartmentID,
		"service_endpoint": e.cfg.ServiceEndpoint,
		"batch_size":       e.cfg.BatchSize,
	}
	if e.cfg.Truncate != "" {
		kw["truncate"] = e.cfg.Truncate
	}
	if len(e.cfg.ClientKwargs) > 0 {
		kw["client_kwargs"] = maps.Clone(e.cfg.ClientKwargs)
	}
	return kw
}
