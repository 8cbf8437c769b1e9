package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type tgiRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters"`
}

// fakeTGI serves /predict. Each request pops the next handler; the last one
// is reused once the queue is drained.
type fakeTGI struct {
	mu       sync.Mutex
	requests []tgiRequest
	headers  []http.Header
	handlers []http.HandlerFunc
}

func (f *fakeTGI) router() http.Handler {
	r := chi.NewRouter()
	r.Post("/predict", func(w http.ResponseWriter, req *http.Request) {
		var body tgiRequest
		_ = json.NewDecoder(req.Body).Decode(&body)
		f.mu.Lock()
		f.requests = append(f.requests, body)
		f.headers = append(f.headers, req.Header.Clone())
		h := f.handlers[0]
		if len(f.handlers) > 1 {
			f.handlers = f.handlers[1:]
		}
		f.mu.Unlock()
		h(w, req)
	})
	return r
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newFakeTGI(t *testing.T, handlers ...http.HandlerFunc) (*fakeTGI, string) {
	t.Helper()
	f := &fakeTGI{handlers: handlers}
	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)
	return f, srv.URL + "/predict"
}

func signingAuth() Auth {
	return Auth{Signer: SignerFunc(func(r *http.Request) error {
		r.Header.Set("Authorization", "Signature keyId=test")
		return nil
	})}
}

func TestTGIGenerateJoke(t *testing.T) {
	f, url := newFakeTGI(t, respond(200, `{"generated_text": "Why did the chicken cross the road?"}`))
	a, err := NewModelDeploymentTGI(ModelDeploymentConfig{Endpoint: url}, WithAuth(signingAuth()))
	if err != nil {
		t.Fatal(err)
	}
	got, err := a.Generate(context.Background(), "Tell me a joke.")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Why did the chicken cross the road?" {
		t.Errorf("Generate = %q", got)
	}

	req := f.requests[0]
	if req.Inputs != "Tell me a joke." {
		t.Errorf("inputs = %q", req.Inputs)
	}
	want := map[string]any{
		"best_of":          float64(1),
		"max_new_tokens":   float64(256),
		"temperature":      0.1,
		"top_p":            0.9,
		"do_sample":        true,
		"return_full_text": true,
		"watermark":        true,
	}
	if !reflect.DeepEqual(req.Parameters, want) {
		t.Errorf("parameters = %v, want %v", req.Parameters, want)
	}
	h := f.headers[0]
	if h.Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", h.Get("Content-Type"))
	}
	if h.Get("Authorization") != "Signature keyId=test" {
		t.Errorf("request not signed: %q", h.Get("Authorization"))
	}
}

func TestTGITopKAndStop(t *testing.T) {
	f, url := newFakeTGI(t, respond(200, `{"generated_text": "x"}`))
	a, _ := NewModelDeploymentTGI(ModelDeploymentConfig{
		Endpoint:         url,
		GenerationConfig: GenerationConfig{TopK: 5},
	}, WithAuth(signingAuth()))
	if _, err := a.Generate(context.Background(), "p", WithStop([]string{"\n"})); err != nil {
		t.Fatal(err)
	}
	params := f.requests[0].Parameters
	if params["top_k"] != float64(5) {
		t.Errorf("top_k = %v", params["top_k"])
	}
	if !reflect.DeepEqual(params["stop"], []any{"\n"}) {
		t.Errorf("stop = %v", params["stop"])
	}

	f, url = newFakeTGI(t, respond(200, `{"generated_text": "x"}`))
	a, _ = NewModelDeploymentTGI(ModelDeploymentConfig{Endpoint: url}, WithAuth(signingAuth()))
	if _, err := a.Generate(context.Background(), "p"); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"top_k", "stop"} {
		if _, ok := f.requests[0].Parameters[k]; ok {
			t.Errorf("%s must be omitted by default", k)
		}
	}
}

func TestTGIStopConflictBeforeNetwork(t *testing.T) {
	f, url := newFakeTGI(t, respond(200, `{}`))
	a, _ := NewModelDeploymentTGI(ModelDeploymentConfig{
		Endpoint:         url,
		GenerationConfig: GenerationConfig{Stop: []string{"a"}},
	}, WithAuth(signingAuth()))
	if _, err := a.Generate(context.Background(), "p", WithStop([]string{"b"})); !IsInvalidParameter(err) {
		t.Errorf("expected InvalidParameterError, got %v", err)
	}
	if len(f.requests) != 0 {
		t.Errorf("backend was called %d times", len(f.requests))
	}
}

func TestTGIFallsBackToRawBody(t *testing.T) {
	_, url := newFakeTGI(t, respond(200, `[{"text": "listed"}]`))
	a, _ := NewModelDeploymentTGI(ModelDeploymentConfig{Endpoint: url}, WithAuth(signingAuth()))
	got, err := a.Generate(context.Background(), "p")
	if err != nil {
		t.Fatal(err)
	}
	if got != `[{"text": "listed"}]` {
		t.Errorf("Generate = %q", got)
	}
}

func TestTGIRetriesAndClassifies(t *testing.T) {
	f, url := newFakeTGI(t, respond(503, "busy"), respond(200, `{"generated_text": "ok"}`))
	a, _ := NewModelDeploymentTGI(ModelDeploymentConfig{Endpoint: url}, WithAuth(signingAuth()))
	got, err := a.Generate(context.Background(), "p")
	if err != nil || got != "ok" {
		t.Fatalf("Generate = %q, %v", got, err)
	}
	if len(f.requests) != 2 {
		t.Errorf("requests = %d", len(f.requests))
	}

	f, url = newFakeTGI(t, respond(401, "expired"))
	a, _ = NewModelDeploymentTGI(ModelDeploymentConfig{Endpoint: url}, WithAuth(signingAuth()))
	_, err = a.Generate(context.Background(), "p")
	if !IsAuthorization(err) {
		t.Errorf("expected AuthorizationError, got %v", err)
	}
	var ae *AuthorizationError
	if errors.As(err, &ae) && ae.Request.Prompt != "p" {
		t.Errorf("request context prompt = %q", ae.Request.Prompt)
	}
	if len(f.requests) != 2 {
		t.Errorf("401 is retried once like any failure, got %d requests", len(f.requests))
	}

	_, url = newFakeTGI(t, respond(500, "down"))
	a, _ = NewModelDeploymentTGI(ModelDeploymentConfig{Endpoint: url}, WithAuth(signingAuth()))
	var se *StatusError
	if _, err := a.Generate(context.Background(), "p"); !IsBackend(err) || !errors.As(err, &se) || se.Body != "down" {
		t.Errorf("expected BackendError with status body, got %v", err)
	}
}

func TestTGINonJSONBodyIsBackendError(t *testing.T) {
	f, url := newFakeTGI(t, respond(200, "<html>not json</html>"))
	a, _ := NewModelDeploymentTGI(ModelDeploymentConfig{Endpoint: url}, WithAuth(signingAuth()))
	if _, err := a.Generate(context.Background(), "p"); !IsBackend(err) {
		t.Errorf("expected BackendError, got %v", err)
	}
	if len(f.requests) != 2 {
		t.Errorf("requests = %d", len(f.requests))
	}
}

func TestTGIBatchGenerate(t *testing.T) {
	f, url := newFakeTGI(t,
		respond(200, `{"generated_text": "one"}`),
		respond(200, `{"generated_text": "two"}`),
	)
	a, _ := NewModelDeploymentTGI(ModelDeploymentConfig{Endpoint: url}, WithAuth(signingAuth()))
	got, err := a.BatchGenerate(context.Background(), "p", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"one", "two"}) || len(f.requests) != 2 {
		t.Errorf("BatchGenerate = %v after %d requests", got, len(f.requests))
	}
	if _, err := a.BatchGenerate(context.Background(), "p", 0); !IsInvalidParameter(err) {
		t.Errorf("expected InvalidParameterError, got %v", err)
	}
}

func TestTGITimeout(t *testing.T) {
	slow := func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}
	_, url := newFakeTGI(t, slow)
	a, _ := NewModelDeploymentTGI(ModelDeploymentConfig{Endpoint: url}, WithAuth(signingAuth()), WithTimeout(20*time.Millisecond))
	_, err := a.Generate(context.Background(), "p")
	if !IsBackend(err) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected BackendError from deadline, got %v", err)
	}
}

func TestTGICustomContentType(t *testing.T) {
	f, url := newFakeTGI(t, respond(200, `{"generated_text": "x"}`))
	a, _ := NewModelDeploymentTGI(ModelDeploymentConfig{Endpoint: url}, WithAuth(signingAuth()), WithContentType("application/octet-stream"))
	if _, err := a.Generate(context.Background(), "p"); err != nil {
		t.Fatal(err)
	}
	if ct := f.headers[0].Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("content type = %q", ct)
	}
}

func TestModelDeploymentConstruction(t *testing.T) {
	tests := []struct {
		name  string
		cfg   ModelDeploymentConfig
		opts  []Option
		check func(error) bool
	}{
		{"missing endpoint", ModelDeploymentConfig{}, []Option{WithAuth(signingAuth())}, IsConfiguration},
		{"bad endpoint", ModelDeploymentConfig{Endpoint: "not a url"}, []Option{WithAuth(signingAuth())}, IsInvalidParameter},
		{"bad best_of", ModelDeploymentConfig{Endpoint: "https://e/predict", BestOf: -1}, []Option{WithAuth(signingAuth())}, IsInvalidParameter},
		{"no credentials", ModelDeploymentConfig{Endpoint: "https://e/predict"}, nil, IsConfiguration},
		{"no signer", ModelDeploymentConfig{Endpoint: "https://e/predict"}, []Option{WithAuth(Auth{})}, IsConfiguration},
	}
	for _, tt := range tests {
		_, err := NewModelDeploymentTGI(tt.cfg, tt.opts...)
		if !tt.check(err) {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
	}
}

func TestTGIDefaultsAndKwargs(t *testing.T) {
	a, err := NewModelDeploymentTGI(ModelDeploymentConfig{Endpoint: "https://e/predict"}, WithAuth(signingAuth()))
	if err != nil {
		t.Fatal(err)
	}
	cfg := a.Config()
	if cfg.BestOf != 1 || !*cfg.DoSample || !*cfg.ReturnFullText || !*cfg.Watermark || cfg.MaxTokens != 256 {
		t.Errorf("defaults = %+v", cfg)
	}
	kw := a.SerializationKwargs()
	if kw["endpoint"] != "https://e/predict" || kw["watermark"] != true {
		t.Errorf("kwargs = %v", kw)
	}
	if _, ok := kw["model"]; ok {
		t.Error("unset model should be omitted")
	}
}

func TestVLLMPlaceholder(t *testing.T) {
	a, err := NewModelDeploymentVLLM(ModelDeploymentConfig{Endpoint: "https://e/predict", Model: "my_model"}, WithAuth(signingAuth()))
	if err != nil {
		t.Fatalf("construction should succeed: %v", err)
	}
	if _, err := a.Generate(context.Background(), "p"); !IsUnsupported(err) {
		t.Errorf("Generate: expected UnsupportedOperationError, got %v", err)
	}
	if _, err := a.BatchGenerate(context.Background(), "p", 2); !IsUnsupported(err) {
		t.Errorf("BatchGenerate: expected UnsupportedOperationError, got %v", err)
	}
	kw := a.SerializationKwargs()
	if kw["endpoint"] != "https://e/predict" || kw["model"] != "my_model" {
		t.Errorf("kwargs = %v", kw)
	}
	if _, ok := kw["do_sample"]; ok {
		t.Error("vLLM kwargs must not carry TGI sampling flags")
	}
}

func TestTGIHeaders(t *testing.T) {
	f, url := newFakeTGI(t, respond(200, `{"generated_text": "x"}`))
	headers := map[string]string{"X-Route": "blue"}
	a, _ := NewModelDeploymentTGI(ModelDeploymentConfig{Endpoint: url, Headers: headers}, WithAuth(signingAuth()))
	headers["X-Route"] = "green"
	if _, err := a.Generate(context.Background(), "p"); err != nil {
		t.Fatal(err)
	}
	if got := f.headers[0].Get("X-Route"); got != "blue" {
		t.Errorf("X-Route = %q", got)
	}
	kw := a.SerializationKwargs()
	if !reflect.DeepEqual(kw["headers"], map[string]string{"X-Route": "blue"}) {
		t.Errorf("headers kwarg = %v", kw["headers"])
	}
}
