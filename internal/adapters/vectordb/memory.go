// Package vectordb - memory.go holds the non-persistent store used in
// tests and as a config fallback when no data directory is wanted.
package vectordb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/clinrag/clinrag-go/internal/domain/entities"
	"github.com/clinrag/clinrag-go/internal/domain/ports"
)

// MemoryStore is an in-memory implementation of ports.VectorStore.
// Same locking discipline as SQLiteStore; contents are lost on exit.
type MemoryStore struct {
	mu       sync.RWMutex
	embedder ports.Embedder
	entries  []entities.Chunk
}

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore(embedder ports.Embedder) *MemoryStore {
	return &MemoryStore{embedder: embedder}
}

// Upsert embeds and appends the chunk batch. The batch becomes visible
// atomically: embedding happens before the lock is taken, and a failed
// embedding leaves the store untouched.
func (s *MemoryStore) Upsert(ctx context.Context, chunks []entities.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	batch := make([]entities.Chunk, len(chunks))
	for i, c := range chunks {
		c.Embedding = embeddings[i]
		batch[i] = c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, batch...)
	return len(batch), nil
}

// Search embeds the query and returns the k nearest entries in
// ascending distance order.
func (s *MemoryStore) Search(ctx context.Context, queryText string, k int) ([]entities.Match, error) {
	queryEmbedding, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]entities.Match, 0, len(s.entries))
	for _, chunk := range s.entries {
		matches = append(matches, entities.Match{
			Chunk:    chunk,
			Distance: CosineDistance(queryEmbedding, chunk.Embedding),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of stored entries.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Clear removes all entries.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}
