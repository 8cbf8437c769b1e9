package genai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/teilomillet/gollm"
)

// GollmConfig configures GollmLLM.
type GollmConfig struct {
	// Provider is a gollm provider name such as "openai" or "anthropic".
	Provider    string
	Model       string
	MaxTokens   int
	Temperature *float64
	Stop        []string

	// APIKeyEnv names the environment variable holding the API key. It is
	// persisted as a secret reference; the key itself never is.
	APIKeyEnv string
	// APIKey is the resolved key. Empty lets gollm read its own environment.
	APIKey string
}

// SecretEnv is a kwarg value naming a secret by environment variable. The
// serialization codec writes it as a secret reference.
type SecretEnv string

// SecretID returns the secret reference id.
func (s SecretEnv) SecretID() []string { return []string{string(s)} }

// generateFunc is the narrow slice of gollm.LLM the adapter needs. options
// are applied to the client before the prompt is sent.
type generateFunc func(ctx context.Context, prompt string, options Params) (string, error)

// GollmLLM adapts any provider supported by gollm to the Adapter contract.
type GollmLLM struct {
	cfg        GollmConfig
	dispatcher *Dispatcher

	mu        sync.Mutex
	generate  generateFunc
	newRunner func(GollmConfig) (generateFunc, error)
}

// NewGollmLLM validates cfg. The gollm client is created on first use.
func NewGollmLLM(cfg GollmConfig, opts ...Option) (*GollmLLM, error) {
	if cfg.Provider == "" {
		return nil, configError("gollm provider is required")
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == nil {
		cfg.Temperature = Float(DefaultTemperature)
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = strings.ToUpper(cfg.Provider) + "_API_KEY"
	}
	if cfg.Stop != nil {
		cfg.Stop = append([]string(nil), cfg.Stop...)
	}
	if cfg.MaxTokens < 1 {
		return nil, invalidParam("max_tokens must be >= 1, got %d", cfg.MaxTokens)
	}
	if *cfg.Temperature < 0 {
		return nil, invalidParam("temperature must be non-negative, got %v", *cfg.Temperature)
	}
	o := newOptions(opts)
	return &GollmLLM{
		cfg:        cfg,
		dispatcher: o.dispatcher("GollmLLM"),
		newRunner:  newGollmRunner,
	}, nil
}

func newGollmRunner(cfg GollmConfig) (generateFunc, error) {
	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(cfg.Provider),
		gollm.SetMaxTokens(cfg.MaxTokens),
		gollm.SetTemperature(*cfg.Temperature),
		gollm.SetMaxRetries(0), // the dispatcher retries
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.Model != "" {
		gollmOpts = append(gollmOpts, gollm.SetModel(cfg.Model))
	}
	if cfg.APIKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.APIKey))
	}
	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gollm LLM for provider %s: %w", cfg.Provider, err)
	}
	// SetOption mutates the shared client, so calls are serialized.
	var mu sync.Mutex
	return func(ctx context.Context, prompt string, options Params) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		for k, v := range options {
			llm.SetOption(k, v)
		}
		return llm.Generate(ctx, gollm.NewPrompt(prompt))
	}, nil
}

// Name returns the adapter type identifier.
func (a *GollmLLM) Name() string { return "GollmLLM" }

// Config returns a copy of the adapter's configuration without the key.
func (a *GollmLLM) Config() GollmConfig {
	c := a.cfg
	c.APIKey = ""
	if a.cfg.Stop != nil {
		c.Stop = append([]string(nil), a.cfg.Stop...)
	}
	return c
}

func (a *GollmLLM) runner() (generateFunc, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generate != nil {
		return a.generate, nil
	}
	g, err := a.newRunner(a.cfg)
	if err != nil {
		return nil, &ConfigurationError{SDKError{Message: "create gollm client", Cause: err}}
	}
	a.generate = g
	return g, nil
}

// Generate returns one generation, cut at the first stop word.
func (a *GollmLLM) Generate(ctx context.Context, prompt string, opts ...CallOption) (string, error) {
	if prompt == "" {
		return "", invalidParam("prompt must not be empty")
	}
	call := newCallConfig(opts)
	stop, err := resolveStop(a.cfg.Stop, call.stop)
	if err != nil {
		return "", err
	}
	gen, err := a.runner()
	if err != nil {
		return "", err
	}
	options := a.callOptions(call.overrides)
	params := options.Clone()
	if stop != nil {
		params["stop"] = stop
	}
	rc := a.dispatcher.newRequest(TaskTextGeneration, params, prompt)
	text, err := dispatch(ctx, a.dispatcher, rc, func(ctx context.Context) (string, error) {
		out, err := gen(ctx, prompt, options)
		if err != nil {
			return "", translateGollmError(err)
		}
		return out, nil
	})
	if err != nil {
		return "", err
	}
	return truncateAtStop(text, stop), nil
}

// callOptions is the full gollm option set for one call. Configured values
// are re-applied every time so an override never outlives its call.
func (a *GollmLLM) callOptions(overrides map[string]any) Params {
	p := Params{
		"max_tokens":  a.cfg.MaxTokens,
		"temperature": *a.cfg.Temperature,
	}
	if a.cfg.Model != "" {
		p["model"] = a.cfg.Model
	}
	return p.Merge(overrides)
}

// BatchGenerate calls Generate n times.
func (a *GollmLLM) BatchGenerate(ctx context.Context, prompt string, n int, opts ...CallOption) ([]string, error) {
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
func (a *GollmLLM) SerializationID() []string {
	return []string{Namespace, "llm", "GollmLLM"}
}

// SerializationKwargs implements serialize.Serializable.
func (a *GollmLLM) SerializationKwargs() map[string]any {
	kw := map[string]any{
		"provider":    a.cfg.Provider,
		"max_tokens":  a.cfg.MaxTokens,
		"temperature": *a.cfg.Temperature,
		"api_key":     SecretEnv(a.cfg.APIKeyEnv),
	}
	if a.cfg.Model != "" {
		kw["model"] = a.cfg.Model
	}
	if a.cfg.Stop != nil {
		kw["stop"] = append([]string(nil), a.cfg.Stop...)
	}
	return kw
}

func truncateAtStop(text string, stop []string) string {
	cut := len(text)
	for _, s := range stop {
		if s == "" {
			continue
		}
		if i := strings.Index(text, s); i >= 0 && i < cut {
			cut = i
		}
	}
	return text[:cut]
}

// translateGollmError maps credential failures onto a StatusError so the
// dispatcher reports them as AuthorizationError. gollm only exposes messages.
func translateGollmError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "invalid key") || strings.Contains(msg, "invalid api key"):
		return &StatusError{StatusCode: http.StatusUnauthorized, Body: err.Error()}
	case strings.Contains(msg, "403") || strings.Contains(msg, "forbidden"):
		return &StatusError{StatusCode: http.StatusForbidden, Body: err.Error()}
	default:
		return err
	}
}
