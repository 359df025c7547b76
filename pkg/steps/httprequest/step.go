// Package httprequest provides a step handler that performs an HTTP request.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/weave-nn/weave/pkg/models"
)

const defaultTimeout = 30 * time.Second

// ErrMissingURL indicates the step configuration lacks a url.
var ErrMissingURL = errors.New("http request step requires a 'url'")

// Step performs one HTTP request per execution attempt. Requests are
// re-issued on retry, so targets should tolerate at-least-once delivery.
type Step struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string

	client *http.Client
}

// NewStep creates an HTTP request step from configuration.
func NewStep(config map[string]any) (*Step, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, ErrMissingURL
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	body, _ := config["body"].(string)

	headers := make(map[string]string)

	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersConfig {
			if value, ok := v.(string); ok {
				headers[k] = value
			}
		}
	}

	timeout := defaultTimeout
	if seconds, ok := config["timeout_seconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
	}

	return &Step{
		Method:  strings.ToUpper(method),
		URL:     url,
		Headers: headers,
		Body:    body,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (s *Step) Execute(ctx context.Context, _ any, sc *models.StepContext) (any, error) {
	logger := sc.Logger.With("step_type", "http_request", "method", s.Method, "url", s.URL)

	var body io.Reader
	if s.Body != "" {
		body = strings.NewReader(s.Body)
	}

	req, err := http.NewRequestWithContext(ctx, s.Method, s.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("request returned status %d", resp.StatusCode)
	}

	logger.Info("HTTP request completed", "status", resp.StatusCode)

	result := map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(raw),
	}

	var decoded any
	if json.Unmarshal(raw, &decoded) == nil {
		result["json"] = decoded
	}

	return result, nil
}

var _ models.StepHandler = (*Step)(nil)
