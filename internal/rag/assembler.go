package rag

import (
	"strings"
	"unicode/utf8"

	"patriotpilot/internal/retrieval"
)

// Prompt template pieces. The context sits between the framing sentence and
// the question; the prompt always ends with the answer cue.
const (
	promptIntro    = "Here is the gathered information:\n"
	promptQuestion = "\n\nNow, answer the following question based on the information above:\n"
	promptCue      = "\nAnswer:"
	bullet         = "- "
)

// Budget bounds the length of the assembled context.
type Budget interface {
	// Truncate returns the longest prefix of s that fits the budget.
	Truncate(s string) string
	// Measure returns the length of s in the budget's unit.
	Measure(s string) int
}

// CharBudget measures context length in characters (runes).
type CharBudget struct {
	Max int
}

// Truncate cuts s after Max runes. The cut is not word-aware.
func (b CharBudget) Truncate(s string) string {
	if b.Max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= b.Max {
		return s
	}
	n := 0
	for i := range s {
		if n == b.Max {
			return s[:i]
		}
		n++
	}
	return s
}

// Measure returns the rune count of s.
func (b CharBudget) Measure(s string) int {
	return utf8.RuneCountInString(s)
}

// TokenTruncator counts and trims text in model tokens.
type TokenTruncator interface {
	CountTokens(text string) int
	TrimToTokenLimit(text string, maxTokens int) string
}

// TokenBudget measures context length in tokens.
type TokenBudget struct {
	Max     int
	Counter TokenTruncator
}

// Truncate keeps the longest token prefix of s with at most Max tokens.
func (b TokenBudget) Truncate(s string) string {
	return b.Counter.TrimToTokenLimit(s, b.Max)
}

// Measure returns the token count of s.
func (b TokenBudget) Measure(s string) int {
	return b.Counter.CountTokens(s)
}

// Assembler renders retrieval results into a bounded prompt.
type Assembler struct {
	budget Budget
}

// NewAssembler creates an Assembler that truncates context to budget.
func NewAssembler(budget Budget) *Assembler {
	return &Assembler{budget: budget}
}

// Context joins hit texts in ranked order, one bulleted line each, and
// truncates the result to the budget. No hits give an empty context.
func (a *Assembler) Context(hits []retrieval.Hit) string {
	if len(hits) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, h := range hits {
		sb.WriteString(bullet)
		sb.WriteString(h.Text)
		sb.WriteByte('\n')
	}
	return a.budget.Truncate(sb.String())
}

// Assemble returns the prompt for query grounded in hits.
func (a *Assembler) Assemble(query string, hits []retrieval.Hit) string {
	return RenderPrompt(a.Context(hits), query)
}

// RenderPrompt places an already bounded context and the query into the template.
func RenderPrompt(context, query string) string {
	return promptIntro + context + promptQuestion + query + promptCue
}
