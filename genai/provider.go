package genai

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Adapter is the uniform call contract every backend implements.
type Adapter interface {
	// Name returns the adapter type identifier (e.g. "GenerativeAI").
	Name() string

	// Generate returns a single generated string (or a summary for
	// summarization adapters).
	Generate(ctx context.Context, prompt string, opts ...CallOption) (string, error)

	// BatchGenerate returns n generations in the order the backend produced
	// them.
	BatchGenerate(ctx context.Context, prompt string, n int, opts ...CallOption) ([]string, error)
}

// Embedder turns texts into vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error)
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// CallOption configures a single Generate or BatchGenerate call.
type CallOption func(*callConfig)

type callConfig struct {
	stop      []string
	overrides map[string]any
}

// WithStop sets call-time stop words. It conflicts with stop words fixed at
// construction.
func WithStop(stop []string) CallOption {
	return func(c *callConfig) {
		c.stop = stop
	}
}

// WithOverrides sets call-time parameter overrides merged over the defaults.
func WithOverrides(overrides map[string]any) CallOption {
	return func(c *callConfig) {
		if c.overrides == nil {
			c.overrides = make(map[string]any, len(overrides))
		}
		for k, v := range overrides {
			c.overrides[k] = v
		}
	}
}

func newCallConfig(opts []CallOption) callConfig {
	var c callConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Signer attaches authentication to an outgoing request.
type Signer interface {
	Sign(req *http.Request) error
}

// SignerFunc adapts a function to the Signer interface.
type SignerFunc func(req *http.Request) error

func (f SignerFunc) Sign(req *http.Request) error { return f(req) }

// Auth is the credential material handed to an adapter. It is never
// serialized.
type Auth struct {
	Signer Signer
	// Config carries client settings that accompany the signer (region,
	// tenancy, ...). Passed to the cloud client factory.
	Config map[string]string
}

// AuthResolver supplies default credentials when none are passed explicitly.
type AuthResolver func() (Auth, error)

// Option configures an adapter at construction.
type Option func(*options)

type options struct {
	auth          *Auth
	resolver      AuthResolver
	logger        *zerolog.Logger
	metrics       *Metrics
	httpClient    *http.Client
	clientFactory CloudClientFactory
	timeout       time.Duration
	contentType   string
}

// WithAuth sets explicit credentials.
func WithAuth(a Auth) Option {
	return func(o *options) {
		o.auth = &a
	}
}

// WithAuthResolver sets the default-credentials collaborator used when no
// explicit Auth is given.
func WithAuthResolver(r AuthResolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithLogger sets the adapter's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// WithMetrics records dispatch metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithHTTPClient sets the HTTP client used by endpoint adapters and the
// default cloud client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithCloudClientFactory replaces the factory that builds the cloud client
// handle.
func WithCloudClientFactory(f CloudClientFactory) Option {
	return func(o *options) {
		o.clientFactory = f
	}
}

// WithTimeout overrides DefaultTimeout for each request attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithContentType overrides the Content-Type header of endpoint requests.
func WithContentType(ct string) Option {
	return func(o *options) {
		o.contentType = ct
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		timeout:     DefaultTimeout,
		contentType: DefaultContentType,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	if o.clientFactory == nil {
		o.clientFactory = NewHTTPCloudClient
	}
	return o
}

// resolveAuth returns explicit credentials, or the result of exactly one
// resolver call.
func (o *options) resolveAuth() (Auth, error) {
	if o.auth != nil {
		return *o.auth, nil
	}
	if o.resolver == nil {
		return Auth{}, configError("no credentials: pass WithAuth or WithAuthResolver")
	}
	a, err := o.resolver()
	if err != nil {
		return Auth{}, &ConfigurationError{SDKError{Message: "default credential resolution failed", Cause: err}}
	}
	return a, nil
}

func (o *options) dispatcher(adapter string) *Dispatcher {
	return &Dispatcher{
		Adapter: adapter,
		Logger:  o.log(),
		Metrics: o.metrics,
		Timeout: o.timeout,
	}
}

func (o *options) log() zerolog.Logger {
	if o.logger != nil {
		return *o.logger
	}
	return Logger()
}
