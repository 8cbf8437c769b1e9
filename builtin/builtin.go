// Package builtin holds the process-wide serialization registry covering
// every component in genai and chain, and the runtime environment loaded
// adapters are constructed with.
package builtin

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/martinemde/genbridge/genai"
	"github.com/martinemde/genbridge/serialize"
)

// Env carries the collaborators a loaded adapter needs but a persisted
// graph never holds. Every adapter built during one load gets its own
// client handle.
type Env struct {
	Auth               *genai.Auth
	AuthResolver       genai.AuthResolver
	CloudClientFactory genai.CloudClientFactory
	Logger             *zerolog.Logger
	Metrics            *genai.Metrics
	HTTPClient         *http.Client
}

func (e Env) options() []genai.Option {
	var opts []genai.Option
	if e.Auth != nil {
		opts = append(opts, genai.WithAuth(*e.Auth))
	}
	if e.AuthResolver != nil {
		opts = append(opts, genai.WithAuthResolver(e.AuthResolver))
	}
	if e.CloudClientFactory != nil {
		opts = append(opts, genai.WithCloudClientFactory(e.CloudClientFactory))
	}
	if e.Logger != nil {
		opts = append(opts, genai.WithLogger(*e.Logger))
	}
	if e.Metrics != nil {
		opts = append(opts, genai.WithMetrics(e.Metrics))
	}
	if e.HTTPClient != nil {
		opts = append(opts, genai.WithHTTPClient(e.HTTPClient))
	}
	return opts
}

func envOf(v any) Env {
	switch e := v.(type) {
	case Env:
		return e
	case *Env:
		if e != nil {
			return *e
		}
	}
	return Env{}
}

// Option configures Codec and Load.
type Option func(*settings)

type settings struct {
	env     Env
	secrets serialize.SecretResolver
}

// WithAuth gives every loaded adapter explicit credentials.
func WithAuth(a genai.Auth) Option {
	return func(s *settings) { s.env.Auth = &a }
}

// WithAuthResolver sets the default-credentials collaborator for loaded
// adapters.
func WithAuthResolver(r genai.AuthResolver) Option {
	return func(s *settings) { s.env.AuthResolver = r }
}

// WithCloudClientFactory sets the cloud client factory for loaded adapters.
func WithCloudClientFactory(f genai.CloudClientFactory) Option {
	return func(s *settings) { s.env.CloudClientFactory = f }
}

// WithLogger sets the logger of loaded adapters.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.env.Logger = &l }
}

// WithMetrics sets the dispatch metrics of loaded adapters.
func WithMetrics(m *genai.Metrics) Option {
	return func(s *settings) { s.env.Metrics = m }
}

// WithHTTPClient sets the HTTP client of loaded adapters.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.env.HTTPClient = c }
}

// WithSecrets overrides how secret references are resolved. The default is
// the process environment.
func WithSecrets(r serialize.SecretResolver) Option {
	return func(s *settings) { s.secrets = r }
}

// Codec returns a codec over the built-in registry.
func Codec(opts ...Option) *serialize.Codec {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return &serialize.Codec{Registry: registry, Secrets: s.secrets, Env: s.env}
}

// Load reconstructs a component graph with the built-in registry.
func Load(n *serialize.Node, opts ...Option) (any, error) {
	return Codec(opts...).Load(n)
}

// Registry returns the built-in registry. It is never mutated; use Extend
// on it to add application types.
func Registry() *serialize.Registry { return registry }
