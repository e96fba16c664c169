// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/clinrag/clinrag-go/internal/domain/entities"
)

// Embedder generates vector embeddings for text.
// Interface Segregation: Only embedding responsibility, nothing else.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text from a language model.
// All calls are blocking unary request/response; no streaming contract.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VectorStore persists chunk embeddings and answers similarity queries.
// It is the system's only durable state: reopening the same path must
// restore previously indexed content.
type VectorStore interface {
	// Upsert embeds and stores the chunk batch atomically, returning
	// the number of entries added. The store does not deduplicate;
	// callers avoid duplicate (source, index) pairs.
	Upsert(ctx context.Context, chunks []entities.Chunk) (int, error)

	// Search embeds queryText and returns the k nearest entries in
	// ascending distance order (most relevant first).
	Search(ctx context.Context, queryText string, k int) ([]entities.Match, error)

	// Count returns the number of indexed entries. Zero signals an
	// empty knowledge base.
	Count(ctx context.Context) (int, error)

	// Clear removes all entries. Maintenance operation; must not run
	// concurrently with Upsert or Search.
	Clear(ctx context.Context) error
}

// PDFParser extracts ordered page texts from PDF bytes.
type PDFParser interface {
	Parse(ctx context.Context, data []byte, filename string) ([]string, error)
}

// DocumentLoader reads and parses documents from the filesystem.
type DocumentLoader interface {
	// Load reads a document from the given path.
	Load(ctx context.Context, path string) (*entities.Document, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
