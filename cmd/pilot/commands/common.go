// Package commands implements the pilot CLI actions.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"patriotpilot/internal/config"
	"patriotpilot/internal/container"
	"patriotpilot/internal/rag"
)

// newContainer loads configuration, installs the process logger and wires
// the shared clients.
func newContainer() (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	c, err := container.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// loadService loads and verifies the persisted pair and builds the retrieval service.
func loadService(ctx context.Context, c *container.Container) (*rag.Service, error) {
	snap, err := c.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	return c.RetrievalService(snap), nil
}

// policyFromFlags reads --policy, --k and --threshold. Unset flags stay zero so
// the service defaults apply.
func policyFromFlags(cmd *cli.Command) (policy string, k int, threshold *float64) {
	policy = cmd.String("policy")
	k = cmd.Int("k")
	if cmd.IsSet("threshold") {
		t := cmd.Float("threshold")
		threshold = &t
	}
	return policy, k, threshold
}
