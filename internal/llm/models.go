package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
)

// modelAvailable reports whether the server behind client lists model in /v1/models.
func modelAvailable(ctx context.Context, client openai.Client, model string) (bool, error) {
	page, err := client.Models.List(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list models: %w", err)
	}
	for _, m := range page.Data {
		if m.ID == model {
			return true, nil
		}
	}
	return false, nil
}

// Ping checks that the generation server is reachable and serves the configured model.
func (c *Client) Ping(ctx context.Context) error {
	return ping(ctx, c.client, c.Model)
}

// Ping checks that the embedding server is reachable and serves the configured model.
func (c *EmbeddingsClient) Ping(ctx context.Context) error {
	return ping(ctx, c.client, c.Model)
}

func ping(ctx context.Context, client openai.Client, model string) error {
	ok, err := modelAvailable(ctx, client, model)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("model %q is not served", model)
	}
	return nil
}
