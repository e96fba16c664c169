// Package loader provides document loading adapters.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clinrag/clinrag-go/internal/domain/entities"
	"github.com/clinrag/clinrag-go/internal/domain/ports"
)

// TextLoader loads plain text documents (.txt, .md). The whole file is
// a single page; plain text has no page structure.
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	modTime := time.Now()
	if info, err := os.Stat(path); err == nil {
		modTime = info.ModTime()
	}

	return &entities.Document{
		ID:        generateDocID(path),
		Name:      filepath.Base(path),
		Path:      path,
		Pages:     []string{string(content)},
		CreatedAt: modTime,
	}, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// PDFLoader loads PDF documents through a ports.PDFParser, producing
// one page text per PDF page.
type PDFLoader struct {
	parser ports.PDFParser
}

// NewPDFLoader creates a PDF loader backed by the given parser.
func NewPDFLoader(parser ports.PDFParser) *PDFLoader {
	return &PDFLoader{parser: parser}
}

// Load reads and parses a PDF from the given path.
func (l *PDFLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	name := filepath.Base(path)
	pages, err := l.parser.Parse(ctx, data, name)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	modTime := time.Now()
	if info, err := os.Stat(path); err == nil {
		modTime = info.ModTime()
	}

	return &entities.Document{
		ID:        generateDocID(path),
		Name:      name,
		Path:      path,
		Pages:     pages,
		CreatedAt: modTime,
	}, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *PDFLoader) SupportedExtensions() []string {
	return []string{".pdf"}
}

// MultiLoader dispatches to the appropriate loader by extension.
type MultiLoader struct {
	loaders map[string]ports.DocumentLoader
}

// NewMultiLoader creates a loader covering text and PDF files.
func NewMultiLoader(parser ports.PDFParser) *MultiLoader {
	text := NewTextLoader()
	pdf := NewPDFLoader(parser)
	return &MultiLoader{
		loaders: map[string]ports.DocumentLoader{
			".txt":      text,
			".md":       text,
			".markdown": text,
			".pdf":      pdf,
		},
	}
}

// Load dispatches to the appropriate loader based on extension.
func (m *MultiLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := m.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	return l.Load(ctx, path)
}

// SupportedExtensions returns all supported extensions.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	return exts
}

// generateDocID creates a deterministic ID for a document.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}
