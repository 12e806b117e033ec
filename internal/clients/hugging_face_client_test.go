package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/sentilyst/internal/models"
)

func TestHuggingFaceClient_Infer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/classify", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.InferenceBatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"good", "bad"}, req.Inputs)
		assert.True(t, req.Truncation)
		assert.Equal(t, 512, req.MaxLength)

		_ = json.NewEncoder(w).Encode(models.InferenceBatchResponse{
			Labels: []string{"negative", "positive"},
			Logits: [][]float64{{-2, 2}, {3, -1}},
		})
	}))
	defer srv.Close()

	client := NewHuggingFaceClient(srv.URL+"/classify", "secret", time.Second).WithBackoff(time.Millisecond)
	resp, err := client.Infer(context.Background(), models.InferenceBatchRequest{
		Inputs:     []string{"good", "bad"},
		Truncation: true,
		Padding:    true,
		MaxLength:  512,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"negative", "positive"}, resp.Labels)
	assert.Equal(t, [][]float64{{-2, 2}, {3, -1}}, resp.Logits)
}

func TestHuggingFaceClient_InferErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"bad request", http.StatusBadRequest, `{"error":"nope"}`, "unexpected status code 400"},
		{"malformed body", http.StatusOK, `not json`, "failed to unmarshal response"},
		{"server error", http.StatusInternalServerError, ``, "request failed after retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewHuggingFaceClient(srv.URL, "", time.Second).WithBackoff(time.Millisecond)
			_, err := client.Infer(context.Background(), models.InferenceBatchRequest{Inputs: []string{"x"}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHuggingFaceClient_Health(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, HF_HEALTH_PATH, r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHuggingFaceClient(srv.URL+"/analyze_batch", "", time.Second)
	assert.True(t, client.Health(context.Background()))

	healthy.Store(false)
	assert.False(t, client.Health(context.Background()))
}
