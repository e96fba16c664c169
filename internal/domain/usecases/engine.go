// Package usecases - engine.go is the pipeline orchestrator: the
// Ingest and Answer entry points plus the administrative operations.
package usecases

import (
	"context"
	"log/slog"

	"github.com/clinrag/clinrag-go/internal/domain/entities"
	"github.com/clinrag/clinrag-go/internal/domain/ports"
)

// Options configures an Engine at construction. The zero value gets
// sensible defaults, enabling multiple independent instances in tests.
type Options struct {
	ChunkSize        int
	ChunkOverlap     int
	TopK             int
	PersistDirectory string
	Logger           *slog.Logger
}

// Engine sequences gate -> retrieve -> compose for queries and
// chunk -> embed -> upsert for ingestion. It is stateless across calls
// except for the vector store handle it holds.
type Engine struct {
	store      ports.VectorStore
	chunker    *Chunker
	retriever  *Retriever
	gate       *TopicGate
	composer   *Composer
	log        *slog.Logger
	persistDir string
}

// NewEngine creates an Engine with injected dependencies.
func NewEngine(store ports.VectorStore, llm ports.Generator, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:      store,
		chunker:    NewChunker(opts.ChunkSize, opts.ChunkOverlap),
		retriever:  NewRetriever(store, opts.TopK),
		gate:       NewTopicGate(llm),
		composer:   NewComposer(llm),
		log:        log,
		persistDir: opts.PersistDirectory,
	}
}

// Ingest processes one document: chunk, tag, embed, store. The chunk
// batch is upserted in a single call, so either all chunks of the
// document are committed or none. Failures are converted into an error
// result scoped to this document; Ingest never returns a raw error.
func (e *Engine) Ingest(ctx context.Context, doc *entities.Document) entities.IngestResult {
	if doc == nil || doc.Name == "" {
		return entities.IngestResult{
			Status: entities.IngestError,
			Source: "unknown",
			Err:    "invalid document: missing name",
		}
	}

	chunks := e.chunker.Split(doc)
	if len(chunks) == 0 {
		return entities.IngestResult{
			Status: entities.IngestError,
			Source: doc.Name,
			Pages:  len(doc.Pages),
			Err:    "document is empty: no chunks produced",
		}
	}

	added, err := e.store.Upsert(ctx, chunks)
	if err != nil {
		e.log.Error("ingest failed", "source", doc.Name, "error", err)
		return entities.IngestResult{
			Status: entities.IngestError,
			Source: doc.Name,
			Pages:  len(doc.Pages),
			Err:    err.Error(),
		}
	}

	e.log.Info("document ingested", "source", doc.Name, "chunks", added, "pages", len(doc.Pages))
	return entities.IngestResult{
		Status:        entities.IngestSuccess,
		Source:        doc.Name,
		ChunksCreated: added,
		Pages:         len(doc.Pages),
	}
}

// Answer runs the query path: topic gate, mode selection, composition.
// Every branch returns an Answer; no branch returns a raw error past
// this boundary.
func (e *Engine) Answer(ctx context.Context, question string) entities.Answer {
	q, ok := entities.NormalizeQuestion(question)
	if !ok {
		return errorAnswer(entities.ErrInput, "question is empty")
	}

	if !e.gate.IsInDomain(ctx, q) {
		e.log.Info("question rejected as out of domain")
		return entities.Answer{Kind: entities.AnswerOutOfDomain}
	}

	count, err := e.store.Count(ctx)
	if err != nil {
		e.log.Error("counting indexed chunks", "error", err)
		return errorAnswer(entities.ErrStorage, err.Error())
	}
	if count == 0 {
		return e.fallback(ctx, q)
	}

	contexts, err := e.retriever.Retrieve(ctx, q)
	if err != nil {
		e.log.Error("retrieval failed", "error", err)
		return errorAnswer(entities.ErrStorage, err.Error())
	}
	if len(contexts) == 0 {
		return e.fallback(ctx, q)
	}

	text, sources, err := e.composer.Grounded(ctx, q, contexts)
	if err != nil {
		e.log.Error("grounded composition failed", "error", err)
		return errorAnswer(entities.ErrServiceUnavailable, err.Error())
	}
	return entities.Answer{Kind: entities.AnswerGrounded, Text: text, Sources: sources}
}

func (e *Engine) fallback(ctx context.Context, question string) entities.Answer {
	text, err := e.composer.Fallback(ctx, question)
	if err != nil {
		e.log.Error("fallback composition failed", "error", err)
		return errorAnswer(entities.ErrServiceUnavailable, err.Error())
	}
	return entities.Answer{Kind: entities.AnswerFallback, Text: text}
}

// Stats reports the state of the knowledge base. Administrative; no
// retrieval-path interaction.
func (e *Engine) Stats(ctx context.Context) entities.Stats {
	count, err := e.store.Count(ctx)
	if err != nil {
		return entities.Stats{Status: "error", PersistDirectory: e.persistDir}
	}
	status := "initialized"
	if count == 0 {
		status = "not_initialized"
	}
	return entities.Stats{
		Status:           status,
		TotalChunks:      count,
		PersistDirectory: e.persistDir,
	}
}

// Reset clears the vector store, returning it to the empty state.
// Maintenance operation requiring exclusive access.
func (e *Engine) Reset(ctx context.Context) error {
	return e.store.Clear(ctx)
}

func errorAnswer(kind entities.ErrorKind, msg string) entities.Answer {
	return entities.Answer{Kind: entities.AnswerError, ErrKind: kind, ErrMessage: msg}
}
