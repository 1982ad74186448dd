// Package repl runs the interactive query loop: read a line, answer it, print
// the answer between banners, until the user types "exit" or input ends.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"patriotpilot/internal/contextutil"
)

const (
	Prompt       = "Enter your query (or type 'exit' to quit): "
	ResponseHead = "\nLLaMA's Response:\n"
	ResponseTail = "\n--- End of Response ---\n\n"
	ExitCommand  = "exit"
)

// Answerer produces the text printed for one query.
type Answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

// AnswerFunc adapts a function to Answerer.
type AnswerFunc func(ctx context.Context, query string) (string, error)

// Answer calls f.
func (f AnswerFunc) Answer(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

// Loop reads queries from in and writes prompts and answers to out.
type Loop struct {
	answerer Answerer
	in       io.Reader
	out      io.Writer
}

// New creates a Loop.
func New(answerer Answerer, in io.Reader, out io.Writer) *Loop {
	return &Loop{answerer: answerer, in: in, out: out}
}

// Run prompts until the user types exit (any case, surrounding space ignored),
// input reaches EOF, or ctx is cancelled. Blank lines are prompted again.
// A failed answer is printed and the loop continues.
func (l *Loop) Run(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)
	scanner := bufio.NewScanner(l.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(l.out, Prompt); err != nil {
			return fmt.Errorf("failed to write prompt: %w", err)
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read query: %w", err)
			}
			_, _ = io.WriteString(l.out, "\n")
			return nil
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(query, ExitCommand) {
			return nil
		}
		if query == "" {
			continue
		}

		answer, err := l.answerer.Answer(ctx, query)
		if err != nil {
			logger.ErrorContext(ctx, "failed to answer query", "error", err)
			if _, werr := fmt.Fprintf(l.out, "\nError: %v\n\n", err); werr != nil {
				return fmt.Errorf("failed to write error: %w", werr)
			}
			continue
		}

		if _, err := fmt.Fprint(l.out, ResponseHead, answer, "\n", ResponseTail); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
}
