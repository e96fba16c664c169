package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinrag/clinrag-go/internal/adapters/vectordb"
	"github.com/clinrag/clinrag-go/internal/domain/entities"
	"github.com/clinrag/clinrag-go/internal/domain/usecases"
)

// hashEmbedder produces deterministic vectors from text content so
// uploaded chunks and related questions land near each other.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, 8)
	for i, r := range strings.ToLower(text) {
		v[i%8] += float32(r%31) / 31
	}
	return v, nil
}

func (e hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

// scriptedLLM classifies every question as medical and returns a fixed
// completion otherwise.
type scriptedLLM struct {
	verdict string
	answer  string
}

func (g scriptedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "Return only 'true' or 'false'") {
		return g.verdict, nil
	}
	return g.answer, nil
}

func newTestServer(llm scriptedLLM) *Server {
	store := vectordb.NewMemoryStore(hashEmbedder{})
	engine := usecases.NewEngine(store, llm, usecases.Options{})
	return NewServer(engine, nil, nil, ":0")
}

func uploadTxt(t *testing.T, s *Server, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	fw.Write([]byte(content))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.handleUpload(rec, req)
	return rec
}

func ask(t *testing.T, s *Server, question string) askResponse {
	t.Helper()
	body, _ := json.Marshal(askRequest{Question: question})
	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleAsk(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestServer_UploadThenGroundedAnswer(t *testing.T) {
	s := newTestServer(scriptedLLM{verdict: "true", answer: "Target HbA1c is below 7% for most adults."})

	rec := uploadTxt(t, s, "ada_guidelines.txt", "The ADA recommends an HbA1c target below 7% for most nonpregnant adults with type 2 diabetes.")
	require.Equal(t, http.StatusOK, rec.Code)

	var uploadResp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploadResp))
	assert.Equal(t, "success", uploadResp["status"])
	assert.Equal(t, "ada_guidelines.txt", uploadResp["source"])
	assert.Positive(t, uploadResp["chunks_created"])

	resp := ask(t, s, "What HbA1c target do the guidelines recommend?")
	assert.Equal(t, "grounded", resp.Kind)
	assert.Contains(t, resp.Answer, "below 7%")
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "ada_guidelines.txt", resp.Sources[0].Name)
	// The source list at the end of the answer names the document once.
	assert.Equal(t, 1, strings.Count(resp.Answer, "ada_guidelines.txt"))
	assert.NotEmpty(t, resp.SessionID)
}

func TestServer_AskWithoutDocumentsFallsBack(t *testing.T) {
	s := newTestServer(scriptedLLM{verdict: "true", answer: "Common symptoms include polyuria and polydipsia."})

	resp := ask(t, s, "What are the symptoms of diabetes?")
	assert.Equal(t, "fallback", resp.Kind)
	assert.Contains(t, resp.Answer, "polyuria")
	assert.Contains(t, resp.Answer, usecases.FallbackDisclaimer)
	assert.Empty(t, resp.Sources)
}

func TestServer_OffTopicQuestionRejected(t *testing.T) {
	s := newTestServer(scriptedLLM{verdict: "false", answer: "unused"})

	resp := ask(t, s, "What is the best pizza topping?")
	assert.Equal(t, "out_of_domain", resp.Kind)
	assert.Equal(t, entities.RejectionMessage, resp.Answer)
}

func TestServer_AskValidation(t *testing.T) {
	s := newTestServer(scriptedLLM{verdict: "true", answer: "ok"})

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"   "}`))
	rec := httptest.NewRecorder()
	s.handleAsk(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`not json`))
	rec = httptest.NewRecorder()
	s.handleAsk(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/ask", nil)
	rec = httptest.NewRecorder()
	s.handleAsk(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_SessionHistoryAccumulates(t *testing.T) {
	s := newTestServer(scriptedLLM{verdict: "true", answer: "General answer."})

	first := ask(t, s, "What causes hypertension?")
	require.NotEmpty(t, first.SessionID)

	body, _ := json.Marshal(askRequest{Question: "And how is it treated?", SessionID: first.SessionID})
	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleAsk(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	s.mu.Lock()
	history := s.sessions[first.SessionID]
	s.mu.Unlock()
	// Two question/answer pairs.
	require.Len(t, history, 4)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, "And how is it treated?", history[2].Content)
}

func TestServer_UnsupportedUploadReportsErrorResult(t *testing.T) {
	s := newTestServer(scriptedLLM{verdict: "true", answer: "ok"})

	rec := uploadTxt(t, s, "data.csv", "a,b,c")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["status"])
	assert.Contains(t, resp["error"], "unsupported file type")
}

func TestServer_StatsAndReset(t *testing.T) {
	s := newTestServer(scriptedLLM{verdict: "true", answer: "ok"})

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	s.handleStats(rec, req)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "not_initialized", stats["status"])

	uploadTxt(t, s, "notes.txt", "Metformin is first-line therapy for type 2 diabetes.")

	rec = httptest.NewRecorder()
	s.handleStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "initialized", stats["status"])

	rec = httptest.NewRecorder()
	s.handleReset(rec, httptest.NewRequest(http.MethodPost, "/api/reset", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.handleStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "not_initialized", stats["status"])
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(scriptedLLM{verdict: "true", answer: "ok"})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
