// Package usecases - gate.go classifies questions as medical or not
// before any expensive reasoning runs.
package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinrag/clinrag-go/internal/domain/ports"
)

const topicGatePrompt = `Determine if this question is related to medicine, healthcare, or medical science.
Question: %s
Return only 'true' or 'false'.`

// TopicGate decides whether a question is in-domain with a single
// classification call to the generator.
//
// Fail-open: any failure of the classification call defaults to true,
// so the pipeline degrades to answering rather than silently refusing.
type TopicGate struct {
	llm ports.Generator
}

// NewTopicGate creates a TopicGate backed by the given generator.
func NewTopicGate(llm ports.Generator) *TopicGate {
	return &TopicGate{llm: llm}
}

// IsInDomain reports whether the question is medical or health-related.
// The verdict is the literal substring "true" (case-insensitive) in the
// model response; anything else is false.
func (g *TopicGate) IsInDomain(ctx context.Context, question string) bool {
	resp, err := g.llm.Generate(ctx, fmt.Sprintf(topicGatePrompt, question))
	if err != nil {
		return true
	}
	return strings.Contains(strings.ToLower(resp), "true")
}
