package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/spacesedan/sentilyst/config"
	"github.com/spacesedan/sentilyst/internal/models"
)

const HF_HEALTH_PATH = "/health"

var (
	huggingFaceInstance *HuggingFaceClient
	huggingFaceOnce     sync.Once
)

// HuggingFaceClient talks to a hosted sequence-classification service that
// answers a batch of texts with raw logits.
type HuggingFaceClient struct {
	Client   *http.Client
	Endpoint string
	APIKey   string

	retry retryPolicy
}

func NewHuggingFaceClient(endpoint, apiKey string, timeout time.Duration) *HuggingFaceClient {
	return &HuggingFaceClient{
		Client:   &http.Client{Timeout: timeout},
		Endpoint: endpoint,
		APIKey:   apiKey,
		retry:    newRetryPolicy("HuggingFaceClient", INITIAL_BACKOFF),
	}
}

// GetHuggingFaceClient returns the process-wide client. Production gets a
// short timeout; cold inference endpoints elsewhere get a minute.
func GetHuggingFaceClient(endpoint, apiKey string) *HuggingFaceClient {
	huggingFaceOnce.Do(func() {
		timeout := 60 * time.Second
		if config.IsProduction() {
			timeout = 10 * time.Second
		}
		slog.Info("[HuggingFaceClient] Initializing Client",
			slog.Duration("timeout", timeout),
			slog.String("env", config.AppEnv()))
		huggingFaceInstance = NewHuggingFaceClient(endpoint, apiKey, timeout)
	})
	return huggingFaceInstance
}

// WithBackoff overrides the initial retry backoff.
func (h *HuggingFaceClient) WithBackoff(d time.Duration) *HuggingFaceClient {
	h.retry = newRetryPolicy("HuggingFaceClient", d)
	return h
}

func (h *HuggingFaceClient) Infer(ctx context.Context, input models.InferenceBatchRequest) (models.InferenceBatchResponse, error) {
	var result models.InferenceBatchResponse
	slog.Debug("[HuggingFaceClient] Requesting batch inference",
		slog.Int("inputs", len(input.Inputs)))
	start := time.Now()

	if err := h.postJSON(ctx, h.Endpoint, input, &result); err != nil {
		slog.Error("[HuggingFaceClient] Inference request failed",
			slog.Duration("elapsed", time.Since(start)))
		return result, err
	}

	slog.Debug("[HuggingFaceClient] Inference request successful",
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

// Health reports whether the service answers its health path with a 2xx.
func (h *HuggingFaceClient) Health(ctx context.Context) bool {
	healthURL, err := url.JoinPath(baseURL(h.Endpoint), HF_HEALTH_PATH)
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return false
	}
	h.authorize(req)

	resp, err := h.Client.Do(req)
	if err != nil {
		slog.Warn("[HuggingFaceClient] Health check failed", slog.String("error", err.Error()))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (h *HuggingFaceClient) authorize(req *http.Request) {
	if h.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}
}

// helper function for posting data to the inference service
func (h *HuggingFaceClient) postJSON(ctx context.Context, endpoint string, input any, output any) error {
	body, err := json.Marshal(input)
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed to marshal input",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	resp, err := h.retry.do(ctx, h.Client, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		h.authorize(req)
		return req, nil
	})
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed request after retries",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("request failed after retries: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed to read response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("[HuggingFaceClient] Unexpected status",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
			getPreview(respBody))
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		slog.Error("[HuggingFaceClient] Failed to unmarshal response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
			getPreview(respBody),
			slog.Int("raw_response_length", len(respBody)))

		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func baseURL(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" {
		return endpoint
	}
	return u.Scheme + "://" + u.Host
}
