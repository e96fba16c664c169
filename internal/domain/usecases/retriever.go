// Package usecases - retriever.go maps raw store matches into
// per-query retrieved contexts with provenance.
package usecases

import (
	"context"
	"fmt"

	"github.com/clinrag/clinrag-go/internal/domain/entities"
	"github.com/clinrag/clinrag-go/internal/domain/ports"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// Retriever queries the vector store for the chunks most relevant to a
// question. Single Responsibility: only retrieval, no answer logic.
type Retriever struct {
	store ports.VectorStore
	topK  int
}

// NewRetriever creates a Retriever with injected dependencies.
func NewRetriever(store ports.VectorStore, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{store: store, topK: topK}
}

// Retrieve returns the top-k retrieved contexts for the question,
// most relevant first. An empty result means no grounding is
// available; the caller decides what that implies.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]entities.RetrievedContext, error) {
	matches, err := r.store.Search(ctx, question, r.topK)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}

	contexts := make([]entities.RetrievedContext, 0, len(matches))
	for _, m := range matches {
		contexts = append(contexts, entities.RetrievedContext{
			Content:    m.Chunk.Content,
			Source:     m.Chunk.Source,
			Page:       m.Chunk.Page,
			ChunkIndex: m.Chunk.Index,
			Distance:   m.Distance,
		})
	}
	return contexts, nil
}
