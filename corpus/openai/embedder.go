package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/Ritesh-97/causal-rationale-extraction-system/corpus"
)

type embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewEmbedder creates an embedder backed by the OpenAI embeddings API. An
// empty model selects text-embedding-3-small.
func NewEmbedder(apiKey string, model openai.EmbeddingModel) (corpus.Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embedder requires an api key")
	}
	if model == "" {
		model = openai.SmallEmbedding3
	}
	return &embedder{client: openai.NewClient(apiKey), model: model}, nil
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 500 * time.Millisecond
	eb.MaxElapsedTime = 30 * time.Second
	b := backoff.WithMaxRetries(eb, 3)

	var vec []float32
	operation := func() error {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: e.model,
			Input: []string{text},
		})
		if err != nil {
			return fmt.Errorf("failed to embed text: %w", err)
		}
		if len(resp.Data) == 0 {
			return backoff.Permanent(fmt.Errorf("embedding response carried no vectors"))
		}
		vec = resp.Data[0].Embedding
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return vec, nil
}
