package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"
)

// InspectAction prints the manifest of the persisted pair as JSON after
// verifying that the pair loads.
func InspectAction(ctx context.Context, cmd *cli.Command) error {
	c, err := newContainer()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	snap, err := c.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(snap.Manifest)
}
