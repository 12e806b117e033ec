package classifier

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spacesedan/sentilyst/internal/models"
)

// Inferencer is the remote inference call, satisfied by clients.HuggingFaceClient.
type Inferencer interface {
	Infer(ctx context.Context, input models.InferenceBatchRequest) (models.InferenceBatchResponse, error)
}

// healthReporter is the service's own health endpoint, when the client has one.
type healthReporter interface {
	Health(ctx context.Context) bool
}

// RemoteBackend delegates tokenization and inference to an HTTP service.
type RemoteBackend struct {
	client    Inferencer
	maxTokens int
	labels    []string
}

func NewRemoteBackend(client Inferencer, maxTokens int) *RemoteBackend {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &RemoteBackend{client: client, maxTokens: maxTokens}
}

// Load learns the service's label order from a one-item inference.
func (r *RemoteBackend) Load(ctx context.Context) error {
	resp, err := r.infer(ctx, []string{warmUpText})
	if err != nil {
		return err
	}
	if len(resp.Labels) == 0 {
		return errors.New("inference service reported no labels")
	}
	r.labels = resp.Labels
	return nil
}

func (r *RemoteBackend) Labels() []string {
	return r.labels
}

func (r *RemoteBackend) Logits(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := r.infer(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(resp.Labels) > 0 && !slices.Equal(resp.Labels, r.labels) {
		return nil, fmt.Errorf("inference service changed labels from %v to %v", r.labels, resp.Labels)
	}
	return resp.Logits, nil
}

// Healthy uses the service's health endpoint when the client exposes one,
// falling back to a one-item inference.
func (r *RemoteBackend) Healthy(ctx context.Context) error {
	hr, ok := r.client.(healthReporter)
	if !ok {
		_, err := r.infer(ctx, []string{warmUpText})
		return err
	}
	if !hr.Health(ctx) {
		return errors.New("inference service health check failed")
	}
	return nil
}

func (r *RemoteBackend) Close() error {
	return nil
}

func (r *RemoteBackend) infer(ctx context.Context, texts []string) (models.InferenceBatchResponse, error) {
	return r.client.Infer(ctx, models.InferenceBatchRequest{
		Inputs:     texts,
		Truncation: true,
		Padding:    true,
		MaxLength:  r.maxTokens,
	})
}
