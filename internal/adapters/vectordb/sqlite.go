// Package vectordb provides vector store adapters.
// Clean Architecture: Adapters implementing ports.VectorStore.
package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/clinrag/clinrag-go/internal/domain/entities"
	"github.com/clinrag/clinrag-go/internal/domain/ports"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements ports.VectorStore with SQLite-backed
// persistence. It is the system's only durable state: reopening the
// same data directory restores previously indexed content.
//
// Locking: Upsert and Clear take the write lock, Search and Count the
// read lock, so a search never observes a partially written batch.
type SQLiteStore struct {
	mu       sync.RWMutex
	db       *sql.DB
	embedder ports.Embedder
	dataPath string
}

// NewSQLiteStore opens (or creates) a persistent vector store under
// dataPath. Embeddings for stored chunks and search queries are
// computed through the injected embedder.
func NewSQLiteStore(dataPath string, embedder ports.Embedder) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}

	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "vectors.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{
		db:       db,
		embedder: embedder,
		dataPath: dataPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		page INTEGER NOT NULL DEFAULT 0,
		doc_type TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert embeds the chunk batch and stores it in a single transaction,
// so either every chunk of the batch becomes visible or none.
func (s *SQLiteStore) Upsert(ctx context.Context, chunks []entities.Chunk) (int, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (id, source, chunk_index, page, doc_type, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		embeddingJSON, err := json.Marshal(embeddings[i])
		if err != nil {
			return 0, fmt.Errorf("encoding embedding: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			chunk.ID,
			chunk.Source,
			chunk.Index,
			chunk.Page,
			chunk.DocType,
			chunk.Content,
			embeddingJSON,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing batch: %w", err)
	}
	return len(chunks), nil
}

// Search embeds the query text and returns the k nearest entries by
// cosine distance, ascending (most relevant first).
func (s *SQLiteStore) Search(ctx context.Context, queryText string, k int) ([]entities.Match, error) {
	queryEmbedding, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Brute-force scan; fine for a single clinician's document set.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, chunk_index, page, doc_type, content, embedding
		FROM chunks
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var matches []entities.Match
	for rows.Next() {
		var chunk entities.Chunk
		var embeddingJSON []byte

		err := rows.Scan(&chunk.ID, &chunk.Source, &chunk.Index, &chunk.Page, &chunk.DocType, &chunk.Content, &embeddingJSON)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if err := json.Unmarshal(embeddingJSON, &chunk.Embedding); err != nil {
			continue // Skip corrupted embeddings
		}

		matches = append(matches, entities.Match{
			Chunk:    chunk,
			Distance: CosineDistance(queryEmbedding, chunk.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of indexed entries.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// Clear removes all entries, returning the store to the empty state.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks")
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CosineDistance is 1 minus the cosine similarity of the two vectors.
// For the non-negative embedding spaces used here it stays roughly in
// [0,1], which the relevance-percent display conversion relies on.
func CosineDistance(a, b []float32) float64 {
	return 1 - cosineSimilarity(a, b)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
