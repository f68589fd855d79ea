// Package model provides domain.Model implementations that call a model
// endpoint over the wire: a generic HTTP JSON client (grounded on the
// teacher's ai/client.go HTTP-call shape) and an AWS Bedrock client, since
// the original's own InferenceClient (flywheel-inference/src/client.rs)
// is an unimplemented stub.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/flywheel-ml/flywheel/internal/breaker"
	"github.com/flywheel-ml/flywheel/internal/domain"
)

// HTTPModel calls a model server that accepts a JSON feature vector and
// returns a domain.PredictionResult envelope.
type HTTPModel struct {
	endpoint   string
	version    string
	httpClient *http.Client
	retry      breaker.RetryConfig
}

// NewHTTPModel builds an HTTPModel. timeout bounds the HTTP round trip;
// the caller (the ml-inference stage) is expected to additionally guard
// calls through internal/breaker. Connection failures and 5xx responses
// are retried with backoff per breaker.DefaultRetryConfig before the
// breaker sees them as one failed call, so a single dropped TCP
// connection doesn't by itself count toward tripping the breaker; other
// non-200 responses are not retried.
func NewHTTPModel(endpoint, version string, timeout time.Duration) *HTTPModel {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPModel{
		endpoint: endpoint, version: version,
		httpClient: &http.Client{Timeout: timeout},
		retry:      breaker.DefaultRetryConfig(),
	}
}

func (m *HTTPModel) Version() string { return m.version }

// errClientRejected records a non-200 response status. Predict wraps it in
// breaker.StopRetrying for statuses below 500 (retrying an identical
// request against a 4xx response won't change it) and returns it bare,
// and so retryable, for 5xx.
type errClientRejected struct{ status int }

func (e *errClientRejected) Error() string { return fmt.Sprintf("status %d", e.status) }

// Predict posts features as the request body and decodes the response as
// a domain.PredictionResult envelope.
func (m *HTTPModel) Predict(ctx context.Context, features json.RawMessage) (domain.PredictionResult, error) {
	var body []byte
	var statusText string
	err := breaker.Retry(ctx, m.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(features))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			statusText = fmt.Sprintf("status %d: %s", resp.StatusCode, string(respBody))
			rejected := &errClientRejected{status: resp.StatusCode}
			if resp.StatusCode < http.StatusInternalServerError {
				return &breaker.StopRetrying{Err: rejected}
			}
			return rejected
		}
		body = respBody
		return nil
	})
	if err != nil {
		if _, ok := err.(*errClientRejected); ok {
			return nil, domain.NewError("model.Predict", "model", fmt.Errorf("%w: %s", domain.ErrModelInferenceFailed, statusText))
		}
		return nil, domain.NewError("model.Predict", "model", fmt.Errorf("%w: %v", domain.ErrModelConnection, err))
	}

	result, err := domain.UnmarshalPredictionResult(body)
	if err != nil {
		return nil, domain.NewError("model.Predict", "model", fmt.Errorf("%w: %v", domain.ErrModelInvalidInput, err))
	}
	return result, nil
}

var _ domain.Model = (*HTTPModel)(nil)
