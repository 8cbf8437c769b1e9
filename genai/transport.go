package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DefaultContentType is sent with every JSON request body.
const DefaultContentType = "application/json"

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 4096

type jsonRequest struct {
	URL         string
	ContentType string
	Headers     map[string]string
	Signer      Signer
	Payload     any
}

// postJSON marshals the payload, signs the request and returns the response
// body. Non-2xx responses become *StatusError.
func postJSON(ctx context.Context, client *http.Client, r jsonRequest) ([]byte, error) {
	b, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	ct := r.ContentType
	if ct == "" {
		ct = DefaultContentType
	}
	req.Header.Set("Content-Type", ct)
	if r.Signer != nil {
		if err := r.Signer.Sign(req); err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
