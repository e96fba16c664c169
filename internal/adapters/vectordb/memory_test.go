package vectordb

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/clinrag/clinrag-go/internal/domain/entities"
)

// stubEmbedder returns fixed vectors per text so distance ordering is
// fully deterministic.
type stubEmbedder struct {
	vectors  map[string][]float32
	batchErr error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 1, 1}, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.batchErr != nil {
		return nil, e.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func testEmbedder() *stubEmbedder {
	return &stubEmbedder{vectors: map[string][]float32{
		"metformin dosing":     {1, 0, 0},
		"statin therapy":       {0, 1, 0},
		"colonoscopy interval": {0, 0, 1},
		"metformin question":   {0.9, 0.1, 0},
	}}
}

func testChunks() []entities.Chunk {
	return []entities.Chunk{
		{ID: "c1", Source: "diabetes.pdf", Index: 0, Page: 1, DocType: entities.DocTypeLiterature, Content: "metformin dosing"},
		{ID: "c2", Source: "lipids.pdf", Index: 0, Page: 1, DocType: entities.DocTypeLiterature, Content: "statin therapy"},
		{ID: "c3", Source: "screening.pdf", Index: 0, Page: 1, DocType: entities.DocTypeLiterature, Content: "colonoscopy interval"},
	}
}

func TestMemoryStore_UpsertAndCount(t *testing.T) {
	store := NewMemoryStore(testEmbedder())
	ctx := context.Background()

	added, err := store.Upsert(ctx, testChunks())
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if added != 3 {
		t.Errorf("expected 3 added, got %d", added)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 chunks, got %d", count)
	}
}

func TestMemoryStore_SearchOrdering(t *testing.T) {
	store := NewMemoryStore(testEmbedder())
	ctx := context.Background()

	if _, err := store.Upsert(ctx, testChunks()); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	matches, err := store.Search(ctx, "metformin question", 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Chunk.Source != "diabetes.pdf" {
		t.Errorf("nearest chunk should be the metformin one, got %s", matches[0].Chunk.Source)
	}
	if matches[0].Distance >= matches[1].Distance {
		t.Errorf("matches not in ascending distance order: %v >= %v", matches[0].Distance, matches[1].Distance)
	}
}

func TestMemoryStore_FailedEmbeddingLeavesStoreUntouched(t *testing.T) {
	embedder := testEmbedder()
	embedder.batchErr = errors.New("embedding service down")
	store := NewMemoryStore(embedder)
	ctx := context.Background()

	if _, err := store.Upsert(ctx, testChunks()); err == nil {
		t.Fatal("expected upsert to fail")
	}

	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("failed batch must not leave partial state, found %d chunks", count)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore(testEmbedder())
	ctx := context.Background()

	store.Upsert(ctx, testChunks())
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("expected empty store after clear, got %d", count)
	}
}

func TestMemoryStore_EmptyBatch(t *testing.T) {
	store := NewMemoryStore(testEmbedder())

	added, err := store.Upsert(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty upsert should succeed: %v", err)
	}
	if added != 0 {
		t.Errorf("expected 0 added, got %d", added)
	}
}

func TestCosineDistance(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 0},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 1},
		{"scaled", []float32{2, 0, 0}, []float32{5, 0, 0}, 0},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 0, 0}, 1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 1},
	}
	for _, tc := range cases {
		got := CosineDistance(tc.a, tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
