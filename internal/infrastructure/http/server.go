// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle. The
// pipeline itself knows nothing about this transport.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinrag/clinrag-go/internal/domain/entities"
	"github.com/clinrag/clinrag-go/internal/domain/ports"
	"github.com/clinrag/clinrag-go/internal/domain/usecases"
)

const maxUploadBytes = 64 << 20 // 64 MiB

// Server exposes the pipeline as a JSON API: document upload, ask,
// stats, reset. Conversation history is kept here, per session - the
// pipeline is stateless across calls.
type Server struct {
	engine *usecases.Engine
	parser ports.PDFParser
	log    *slog.Logger
	addr   string

	mu       sync.Mutex
	sessions map[string][]entities.ChatMessage
}

// NewServer creates a new HTTP server around the engine.
func NewServer(engine *usecases.Engine, parser ports.PDFParser, log *slog.Logger, addr string) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		engine:   engine,
		parser:   parser,
		log:      log,
		addr:     addr,
		sessions: make(map[string][]entities.ChatMessage),
	}
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/documents", s.handleUpload)
	mux.HandleFunc("/api/ask", s.handleAsk)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/health", s.handleHealth)

	server := &http.Server{
		Addr:         s.addr,
		Handler:      corsMiddleware(s.loggingMiddleware(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	s.log.Info("clinrag server starting", "addr", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	return server.ListenAndServe()
}

// handleUpload ingests one uploaded document. Failures are reported as
// an error result for that document, never as a transport error.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "Reading upload failed", http.StatusBadRequest)
		return
	}

	doc, err := s.buildDocument(r.Context(), header.Filename, data)
	var result entities.IngestResult
	if err != nil {
		result = entities.IngestResult{
			Status: entities.IngestError,
			Source: header.Filename,
			Err:    err.Error(),
		}
	} else {
		result = s.engine.Ingest(r.Context(), doc)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         result.Status,
		"source":         result.Source,
		"chunks_created": result.ChunksCreated,
		"pages":          result.Pages,
		"error":          result.Err,
	})
}

// buildDocument turns uploaded bytes into a Document: PDFs go through
// the parse service, text formats are a single page.
func (s *Server) buildDocument(ctx context.Context, filename string, data []byte) (*entities.Document, error) {
	var pages []string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		var err error
		pages, err = s.parser.Parse(ctx, data, filename)
		if err != nil {
			return nil, fmt.Errorf("parsing PDF: %w", err)
		}
	case ".txt", ".md", ".markdown":
		pages = []string{string(data)}
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(filename))
	}

	return &entities.Document{
		ID:        uuid.NewString(),
		Name:      filename,
		Pages:     pages,
		CreatedAt: time.Now(),
	}, nil
}

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

type askResponse struct {
	Kind      string            `json:"kind"`
	Answer    string            `json:"answer"`
	Sources   []sourceRef       `json:"sources,omitempty"`
	SessionID string            `json:"session_id"`
	ErrorKind entities.ErrorKind `json:"error_kind,omitempty"`
}

type sourceRef struct {
	Name             string  `json:"name"`
	RelevancePercent float64 `json:"relevance_percent"`
}

// handleAsk answers a question. The HTTP status is 200 for every
// pipeline outcome; callers switch on the kind field.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "Question required", http.StatusBadRequest)
		return
	}

	answer := s.engine.Answer(r.Context(), req.Question)

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	s.appendHistory(sessionID, req.Question, answer.String())

	resp := askResponse{
		Kind:      answerKindLabel(answer.Kind),
		Answer:    answer.String(),
		SessionID: sessionID,
		ErrorKind: answer.ErrKind,
	}
	for _, src := range answer.Sources {
		resp.Sources = append(resp.Sources, sourceRef{
			Name:             src.Name,
			RelevancePercent: src.RelevancePercent,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) appendHistory(sessionID, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID],
		entities.ChatMessage{Role: "user", Content: question},
		entities.ChatMessage{Role: "assistant", Content: answer},
	)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := s.engine.Stats(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            stats.Status,
		"total_chunks":      stats.TotalChunks,
		"persist_directory": stats.PersistDirectory,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.engine.Reset(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func answerKindLabel(kind entities.AnswerKind) string {
	switch kind {
	case entities.AnswerGrounded:
		return "grounded"
	case entities.AnswerFallback:
		return "fallback"
	case entities.AnswerOutOfDomain:
		return "out_of_domain"
	default:
		return "error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		next.ServeHTTP(w, r)
		s.log.Info("request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
