package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// DefaultServiceEndpoint is the cloud generative-AI service endpoint used
// when neither the config nor the client kwargs name one.
const DefaultServiceEndpoint = "https://generativeai.aiservice.us-chicago-1.oci.oraclecloud.com"

const apiVersionPath = "/20231130/actions/"

// CloudClient is the authenticated handle to the cloud service. One adapter
// owns one client; concurrent safety is the implementation's concern.
type CloudClient interface {
	GenerateText(ctx context.Context, details Params, endpointKwargs map[string]any) (*GenerateTextResult, error)
	SummarizeText(ctx context.Context, details Params, endpointKwargs map[string]any) (*SummarizeTextResult, error)
	EmbedText(ctx context.Context, details Params, endpointKwargs map[string]any) (*EmbedTextResult, error)
}

// CloudClientConfig is handed to a CloudClientFactory.
type CloudClientConfig struct {
	Auth            Auth
	ServiceEndpoint string
	ClientKwargs    map[string]any
	HTTPClient      *http.Client
}

// CloudClientFactory builds the client handle on first use.
type CloudClientFactory func(cfg CloudClientConfig) (CloudClient, error)

// GeneratedText is one candidate generation.
type GeneratedText struct {
	Text string `json:"text"`
}

// GenerateTextResult groups candidates by prompt.
type GenerateTextResult struct {
	GeneratedTexts [][]GeneratedText `json:"generated_texts"`
}

// SummarizeTextResult carries a single summary.
type SummarizeTextResult struct {
	Summary *string `json:"summary"`
}

// EmbedTextResult carries one vector per input.
type EmbedTextResult struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// ServingMode routes a request to a model.
type ServingMode struct {
	ServingType string `json:"serving_type"`
	ModelID     string `json:"model_id"`
}

func onDemand(model string) ServingMode {
	return ServingMode{ServingType: "ON_DEMAND", ModelID: model}
}

// httpCloudClient talks to the service REST API with signed JSON requests.
type httpCloudClient struct {
	baseURL string
	signer  Signer
	client  *http.Client
}

// NewHTTPCloudClient is the default CloudClientFactory.
func NewHTTPCloudClient(cfg CloudClientConfig) (CloudClient, error) {
	if cfg.Auth.Signer == nil {
		return nil, configError("cloud client requires a signer")
	}
	endpoint := cfg.ServiceEndpoint
	if v, ok := cfg.ClientKwargs["service_endpoint"].(string); ok && v != "" {
		endpoint = v
	}
	if endpoint == "" {
		endpoint = DefaultServiceEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &httpCloudClient{
		baseURL: strings.TrimRight(endpoint, "/"),
		signer:  cfg.Auth.Signer,
		client:  client,
	}, nil
}

func (c *httpCloudClient) GenerateText(ctx context.Context, details Params, endpointKwargs map[string]any) (*GenerateTextResult, error) {
	var out GenerateTextResult
	if err := c.call(ctx, "generateText", details, endpointKwargs, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpCloudClient) SummarizeText(ctx context.Context, details Params, endpointKwargs map[string]any) (*SummarizeTextResult, error) {
	var out SummarizeTextResult
	if err := c.call(ctx, "summarizeText", details, endpointKwargs, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpCloudClient) EmbedText(ctx context.Context, details Params, endpointKwargs map[string]any) (*EmbedTextResult, error) {
	var out EmbedTextResult
	if err := c.call(ctx, "embedText", details, endpointKwargs, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpCloudClient) call(ctx context.Context, action string, details Params, endpointKwargs map[string]any, out any) error {
	body, err := postJSON(ctx, c.client, jsonRequest{
		URL:     c.baseURL + apiVersionPath + action,
		Headers: endpointHeaders(endpointKwargs),
		Signer:  c.signer,
		Payload: details,
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s response: %w", action, err)
	}
	return nil
}

// endpointHeaders maps string-valued per-call kwargs such as opc_request_id
// to request headers (opc-request-id).
func endpointHeaders(kwargs map[string]any) map[string]string {
	if len(kwargs) == 0 {
		return nil
	}
	h := make(map[string]string, len(kwargs))
	for k, v := range kwargs {
		if s, ok := v.(string); ok {
			h[strings.ReplaceAll(k, "_", "-")] = s
		}
	}
	return h
}
