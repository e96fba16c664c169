// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DocTypeLiterature tags chunks that originate from ingested medical literature.
const DocTypeLiterature = "medical_literature"

// Document represents an uploaded source document (PDF, TXT, MD).
// This is a core entity - no knowledge of storage or external systems.
// Name is the stable source identifier carried into every chunk.
type Document struct {
	ID        string
	Name      string
	Path      string
	Pages     []string // ordered page texts
	CreatedAt time.Time
}

// Chunk is an immutable bounded slice of a document's text.
// Ownership transfers to the vector store on ingestion.
type Chunk struct {
	ID        string
	Source    string // document name
	Index     int    // position within the source's chunk sequence
	Page      int    // originating page number, 1-based; 0 = unknown
	DocType   string
	Content   string
	Embedding []float32 // populated by the store adapter
}

// Match is a raw store search hit. Distance is the vector distance to
// the query; lower means more relevant.
type Match struct {
	Chunk    Chunk
	Distance float64
}

// RetrievedContext is an ephemeral per-query view of a matched chunk
// with its provenance.
type RetrievedContext struct {
	Content    string
	Source     string
	Page       int
	ChunkIndex int
	Distance   float64
}

// RelevancePercent converts the raw distance into the percentage shown
// to the user. The conversion assumes a distance metric roughly bounded
// in [0,1]; it is a display heuristic, not a probability.
func (c RetrievedContext) RelevancePercent() float64 {
	return math.Round((1-c.Distance)*100*100) / 100
}

// SourceRef is one line of the source attribution appended to a
// grounded answer.
type SourceRef struct {
	Name             string
	RelevancePercent float64
}

// AnswerKind discriminates the tagged answer result.
type AnswerKind int

const (
	AnswerGrounded AnswerKind = iota
	AnswerFallback
	AnswerOutOfDomain
	AnswerError
)

// ErrorKind classifies pipeline failures surfaced on the engine boundary.
type ErrorKind string

const (
	ErrServiceUnavailable ErrorKind = "service_unavailable"
	ErrStorage            ErrorKind = "storage_error"
	ErrInput              ErrorKind = "input_error"
)

// RejectionMessage is returned verbatim for out-of-domain questions.
const RejectionMessage = "⚠️ **Out of Context**: This question appears to be unrelated to medicine, healthcare, " +
	"or medical science. Please ask medical or health-related questions only."

// Answer is the tagged result of a query. Callers pattern-match on Kind
// instead of parsing string prefixes.
type Answer struct {
	Kind       AnswerKind
	Text       string
	Sources    []SourceRef
	ErrKind    ErrorKind
	ErrMessage string
}

// String renders the answer as the single markdown string consumed by
// a plain-text caller. Error answers carry a distinct prefix; the
// out-of-domain case is the fixed rejection message.
func (a Answer) String() string {
	switch a.Kind {
	case AnswerOutOfDomain:
		return RejectionMessage
	case AnswerError:
		return fmt.Sprintf("❌ Error processing query (%s): %s", a.ErrKind, a.ErrMessage)
	default:
		return a.Text
	}
}

// IngestStatus values for IngestResult.Status.
const (
	IngestSuccess = "success"
	IngestError   = "error"
)

// IngestResult is the structured outcome of ingesting one document.
// Failures are scoped to the document; they never abort a batch.
type IngestResult struct {
	Status        string
	Source        string
	ChunksCreated int
	Pages         int
	Err           string
}

// Stats describes the state of the knowledge base.
type Stats struct {
	Status           string // "not_initialized", "initialized" or "error"
	TotalChunks      int
	PersistDirectory string
}

// ChatMessage represents a conversation turn. History is owned by the
// caller's session, never by the pipeline.
type ChatMessage struct {
	Role    string // "user" or "assistant"
	Content string
}

// NormalizeQuestion trims a raw question and reports whether anything
// is left to answer.
func NormalizeQuestion(q string) (string, bool) {
	q = strings.TrimSpace(q)
	return q, q != ""
}
