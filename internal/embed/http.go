package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crossvoice/internal/apierr"
)

const defaultHTTPTimeout = 120 * time.Second

// httpDoer abstracts the HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPBackend talks to an embedding server over HTTP. It is batch-capable
// and safe for concurrent callers.
type HTTPBackend struct {
	baseURL string
	client  httpDoer
	accel   *bool // health-reported accelerator; nil until Probe learns it
}

// HTTPOption configures an HTTPBackend.
type HTTPOption func(*HTTPBackend)

// WithHTTPClient sets the HTTP client (for testing or custom transports).
func WithHTTPClient(c httpDoer) HTTPOption {
	return func(b *HTTPBackend) { b.client = c }
}

// NewHTTPBackend creates a backend for the embedding server at baseURL.
func NewHTTPBackend(baseURL string, opts ...HTTPOption) *HTTPBackend {
	b := &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var (
	_ Backend    = (*HTTPBackend)(nil)
	_ batchSizer = (*HTTPBackend)(nil)
)

func (b *HTTPBackend) Name() string         { return "server " + b.baseURL }
func (b *HTTPBackend) Batchable() bool      { return true }
func (b *HTTPBackend) ConcurrentSafe() bool { return true }

// BatchSize follows the serving hardware the health endpoint reported:
// large batches on an accelerator, small ones without, the default when the
// server says nothing.
func (b *HTTPBackend) BatchSize() int {
	switch {
	case b.accel == nil:
		return DefaultBatchSize
	case *b.accel:
		return ConcurrentBatchSize
	default:
		return SerializedBatchSize
	}
}

// healthResponse is the health endpoint's optional JSON body.
type healthResponse struct {
	Status string `json:"status"`
	CUDA   *bool  `json:"cuda"`
}

// Probe checks the server's health endpoint and records the reported
// hardware for batch sizing.
func (b *HTTPBackend) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrTimeout, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode, body)
	}

	var health healthResponse
	if err := json.Unmarshal(body, &health); err == nil {
		b.accel = health.CUDA
	}
	return nil
}

// encodeRequest is the JSON body of an embedding request.
type encodeRequest struct {
	SampleRate int         `json:"sample_rate"`
	Waveforms  [][]float32 `json:"waveforms"`
}

// encodeResponse is the JSON body of an embedding response.
type encodeResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EncodeBatch posts a batch of waveforms and returns one vector per input.
func (b *HTTPBackend) EncodeBatch(ctx context.Context, waveforms [][]float32, sampleRate int) ([][]float32, error) {
	body, err := json.Marshal(encodeRequest{SampleRate: sampleRate, Waveforms: waveforms})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrTimeout, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	var parsed encodeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Embeddings) != len(waveforms) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d waveforms",
			apierr.ErrBadRequest, len(parsed.Embeddings), len(waveforms))
	}
	return parsed.Embeddings, nil
}

// classifyStatus maps HTTP status codes to sentinel errors.
func classifyStatus(statusCode int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", msg, apierr.ErrRateLimit)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, apierr.ErrAuthFailed)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", msg, apierr.ErrTimeout)
	case http.StatusBadRequest, http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, apierr.ErrBadRequest)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		// Retryable server error.
		return fmt.Errorf("%s: %w", msg, apierr.ErrTimeout)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}
