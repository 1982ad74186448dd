package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"patriotpilot/internal/rag"
	"patriotpilot/internal/repl"
	"patriotpilot/internal/service"
)

// ChatAction runs the interactive loop. With --direct, queries go to the LLM
// without retrieval and no index is loaded.
func ChatAction(ctx context.Context, cmd *cli.Command) error {
	policy, k, threshold := policyFromFlags(cmd)

	c, err := newContainer()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	var answerer repl.Answerer
	if cmd.Bool("direct") {
		answerer = directAnswerer(c.ChatService())
	} else {
		svc, err := loadService(ctx, c)
		if err != nil {
			return err
		}
		answerer = groundedAnswerer(svc, policy, k, threshold)
	}

	root := cmd.Root()
	return repl.New(answerer, root.Reader, root.Writer).Run(ctx)
}

type asker interface {
	Ask(ctx context.Context, req rag.AskRequest) (rag.AskResponse, error)
}

func groundedAnswerer(svc asker, policy string, k int, threshold *float64) repl.AnswerFunc {
	return func(ctx context.Context, query string) (string, error) {
		resp, err := svc.Ask(ctx, rag.AskRequest{
			Question:  query,
			Policy:    policy,
			K:         k,
			Threshold: threshold,
		})
		if err != nil {
			return "", err
		}
		return resp.Answer, nil
	}
}

func directAnswerer(chat service.ChatService) repl.AnswerFunc {
	return func(ctx context.Context, query string) (string, error) {
		resp, err := chat.ProcessChat(ctx, service.ChatRequest{Message: query})
		if err != nil {
			return "", err
		}
		return resp.Reply, nil
	}
}
