package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"patriotpilot/internal/rag"
	"patriotpilot/internal/repl"
)

// AskAction answers a single question given as arguments.
func AskAction(ctx context.Context, cmd *cli.Command) error {
	question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if question == "" {
		return errors.New("a question is required")
	}
	policy, k, threshold := policyFromFlags(cmd)

	c, err := newContainer()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	svc, err := loadService(ctx, c)
	if err != nil {
		return err
	}

	resp, err := svc.Ask(ctx, rag.AskRequest{
		Question:  question,
		Policy:    policy,
		K:         k,
		Threshold: threshold,
	})
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	fmt.Fprint(w, formatAnswer(resp.Answer))
	if cmd.Bool("show-sources") {
		fmt.Fprint(w, formatSources(resp))
	}
	return nil
}

// formatAnswer frames an answer between the response banners.
func formatAnswer(answer string) string {
	return repl.ResponseHead + answer + "\n" + repl.ResponseTail
}

func formatSources(resp rag.AskResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sources (%s, context %d):\n", resp.Policy, resp.ContextLength)
	if len(resp.Sources) == 0 {
		b.WriteString("  none\n")
	}
	for i, h := range resp.Sources {
		fmt.Fprintf(&b, "  %d. #%d similarity=%.4f distance=%.4f\n     %s\n", i+1, h.Ordinal, h.Similarity, h.Distance, h.Text)
	}
	return b.String()
}
