package repl

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func echo(calls *[]string) AnswerFunc {
	return func(_ context.Context, query string) (string, error) {
		*calls = append(*calls, query)
		return "answer to " + query, nil
	}
}

func TestLoop_Run(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCalls []string
	}{
		{"exit immediately", "exit\n", nil},
		{"exit is case insensitive and trimmed", "  EXIT  \n", nil},
		{"one query then exit", "What is the deadline?\nexit\n", []string{"What is the deadline?"}},
		{"blank lines are skipped", "\n   \nq1\nExit\n", []string{"q1"}},
		{"query is trimmed", "  q1  \nexit\n", []string{"q1"}},
		{"EOF ends the loop", "q1\nq2", []string{"q1", "q2"}},
		{"exit inside a sentence is a query", "how do I exit?\nexit\n", []string{"how do I exit?"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			var out bytes.Buffer

			err := New(echo(&calls), strings.NewReader(tt.input), &out).Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if len(calls) != len(tt.wantCalls) {
				t.Fatalf("calls = %q, want %q", calls, tt.wantCalls)
			}
			for i := range calls {
				if calls[i] != tt.wantCalls[i] {
					t.Errorf("calls[%d] = %q, want %q", i, calls[i], tt.wantCalls[i])
				}
			}
		})
	}
}

func TestLoop_RunOutput(t *testing.T) {
	var calls []string
	var out bytes.Buffer

	if err := New(echo(&calls), strings.NewReader("q1\nexit\n"), &out).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := Prompt +
		"\nLLaMA's Response:\nanswer to q1\n\n--- End of Response ---\n\n" +
		Prompt
	if got := out.String(); got != want {
		t.Errorf("output =\n%q\nwant\n%q", got, want)
	}
}

func TestLoop_AnswerErrorContinues(t *testing.T) {
	var calls int
	answerer := AnswerFunc(func(_ context.Context, query string) (string, error) {
		calls++
		if query == "bad" {
			return "", errors.New("embedding failure")
		}
		return "ok", nil
	})
	var out bytes.Buffer

	if err := New(answerer, strings.NewReader("bad\ngood\nexit\n"), &out).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if !strings.Contains(out.String(), "Error: embedding failure") {
		t.Errorf("output missing error line: %q", out.String())
	}
	if !strings.Contains(out.String(), ResponseHead+"ok\n"+ResponseTail) {
		t.Errorf("output missing response: %q", out.String())
	}
}

func TestLoop_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls []string
	err := New(echo(&calls), strings.NewReader("q1\n"), &bytes.Buffer{}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(calls) != 0 {
		t.Errorf("calls = %q, want none", calls)
	}
}
