// Package usecases - composer.go builds the final structured answer,
// either grounded in retrieved literature or from general knowledge.
package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinrag/clinrag-go/internal/domain/entities"
	"github.com/clinrag/clinrag-go/internal/domain/ports"
)

const groundedPromptTemplate = `Analyze the following medical question using the provided document contexts.

Question: %s

Relevant Document Contexts:
%s

Please provide:
1. Direct answers found in the documents
2. Key points from each relevant source
3. Synthesis of information
4. Additional considerations

Response format:
### 📑 Document Analysis
[List key findings from documents]

### 🔍 Detailed Answer
[Comprehensive response]

### 📚 Source Analysis
[Break down of information by source]

Response:`

const fallbackPromptTemplate = `You are a medical AI assistant. Internally analyze the following medical question
to determine its type, complexity, and required expertise level. Based on your analysis, provide an appropriate
response without explicitly stating the analysis process.

Question: %s

Instructions:
- For clinical questions, structure your response with relevant medical reasoning and considerations
- For general health questions, provide clear, direct answers with evidence-based guidance
- For administrative queries, give straightforward practical responses
- Adapt your response style and depth based on the question's complexity
- Include relevant medical context only when necessary

Note: Ensure responses follow evidence-based medical principles while maintaining appropriate scope.

Response:`

// FallbackDisclaimer is appended to every fallback-mode answer.
const FallbackDisclaimer = "\n\n⚠️ **Note**: No medical literature loaded. Response based on general medical knowledge only."

// SourcesHeading opens the source attribution block of grounded answers.
const SourcesHeading = "\n\n### 📚 Document Sources:\n"

// Composer assembles answers. Mode selection belongs to the engine;
// the composer only knows how to render each mode.
type Composer struct {
	llm ports.Generator
}

// NewComposer creates a Composer backed by the given generator.
func NewComposer(llm ports.Generator) *Composer {
	return &Composer{llm: llm}
}

// Grounded issues one generation call constrained to the retrieved
// contexts and appends the deduplicated source list, one line per
// unique source name in first-seen order.
func (c *Composer) Grounded(ctx context.Context, question string, contexts []entities.RetrievedContext) (string, []entities.SourceRef, error) {
	prompt := fmt.Sprintf(groundedPromptTemplate, question, formatContexts(contexts))
	resp, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("generating grounded answer: %w", err)
	}

	sources := DedupSources(contexts)
	var sb strings.Builder
	sb.WriteString(resp)
	sb.WriteString(SourcesHeading)
	for _, src := range sources {
		fmt.Fprintf(&sb, "- %s (Relevance: %.2f%%)\n", src.Name, src.RelevancePercent)
	}
	return sb.String(), sources, nil
}

// Fallback issues one generation call grounded only in the model's
// general knowledge and appends the fixed no-literature disclaimer.
func (c *Composer) Fallback(ctx context.Context, question string) (string, error) {
	resp, err := c.llm.Generate(ctx, fmt.Sprintf(fallbackPromptTemplate, question))
	if err != nil {
		return "", fmt.Errorf("generating fallback answer: %w", err)
	}
	return resp + FallbackDisclaimer, nil
}

// formatContexts renders the labeled context block fed to the model.
func formatContexts(contexts []entities.RetrievedContext) string {
	parts := make([]string, len(contexts))
	for i, c := range contexts {
		parts[i] = fmt.Sprintf("Source: %s\nContent: %s", c.Source, c.Content)
	}
	return strings.Join(parts, "\n\n")
}

// DedupSources collapses contexts to one SourceRef per unique source
// name, keeping first-seen order and the first (best) relevance.
func DedupSources(contexts []entities.RetrievedContext) []entities.SourceRef {
	seen := make(map[string]bool, len(contexts))
	var out []entities.SourceRef
	for _, c := range contexts {
		if seen[c.Source] {
			continue
		}
		seen[c.Source] = true
		out = append(out, entities.SourceRef{
			Name:             c.Source,
			RelevancePercent: c.RelevancePercent(),
		})
	}
	return out
}
