// Package aiserver is the HTTP client for the external AI extraction service.
// Dispatch is asynchronous: the server answers with an immediate acceptance
// acknowledgment and delivers the actual result later through the webhook
// callback endpoint.
package aiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/suhsaechan/tripgether/internal/config"
)

// Sentinel errors for AI server dispatch failures. All of them are transport
// level: none of them fail the job, they only defer it to the retry sweep.
var (
	ErrUnreachable = errors.New("ai server unreachable")
	ErrTimeout     = errors.New("ai server timeout")
	ErrRejected    = errors.New("ai server rejected request")
	ErrInvalidAck  = errors.New("ai server returned invalid acknowledgment")
)

// Client is the interface for dispatching extraction requests.
type Client interface {
	// RequestExtraction asks the AI server to extract places from snsURL.
	// The content id doubles as the correlation id echoed in the callback.
	RequestExtraction(ctx context.Context, contentID uuid.UUID, snsURL string) error
}

// HTTPClient implements Client against the AI server's HTTP API.
type HTTPClient struct {
	baseURL     string
	extractPath string
	apiKey      string
	client      *http.Client
}

// NewHTTPClient creates a new AI server client from config.
func NewHTTPClient(cfg config.AIServerConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:     cfg.BaseURL,
		extractPath: cfg.ExtractPath,
		apiKey:      cfg.APIKey,
		client:      &http.Client{Timeout: cfg.AcceptTimeout},
	}
}

type extractionRequest struct {
	ContentID uuid.UUID `json:"content_id"`
	SNSURL    string    `json:"sns_url"`
}

type extractionAck struct {
	Received bool   `json:"received"`
	Status   string `json:"status"`
}

func (c *HTTPClient) RequestExtraction(ctx context.Context, contentID uuid.UUID, snsURL string) error {
	body, err := json.Marshal(extractionRequest{ContentID: contentID, SNSURL: snsURL})
	if err != nil {
		return fmt.Errorf("encoding extraction request: %w", err)
	}

	u := c.baseURL + c.extractPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("X-API-Key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	var ack extractionAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAck, err)
	}
	if !ack.Received || ack.Status != "ACCEPTED" {
		return fmt.Errorf("%w: received=%t status=%q", ErrInvalidAck, ack.Received, ack.Status)
	}

	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
