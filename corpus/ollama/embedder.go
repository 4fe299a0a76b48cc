package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ollama/ollama/api"

	"github.com/Ritesh-97/causal-rationale-extraction-system/corpus"
)

type Model string

const (
	ModelMXBAI Model = "mxbai-embed-large"
)

type embedder struct {
	client *api.Client
	model  Model
}

// NewEmbedder creates an embedder backed by a local Ollama server, configured
// from the environment.
func NewEmbedder(model Model) (corpus.Embedder, error) {
	cli, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, err
	}
	return &embedder{client: cli, model: model}, nil
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 500 * time.Millisecond
	eb.MaxElapsedTime = 30 * time.Second
	b := backoff.WithMaxRetries(eb, 3)

	var vec []float32
	operation := func() error {
		resp, err := e.client.Embed(ctx, &api.EmbedRequest{
			Model: string(e.model),
			Input: text,
		})
		if err != nil {
			return fmt.Errorf("failed to embed text: %w", err)
		}
		if len(resp.Embeddings) == 0 {
			return backoff.Permanent(fmt.Errorf("embed response carried no vectors"))
		}
		vec = resp.Embeddings[0]
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return vec, nil
}
