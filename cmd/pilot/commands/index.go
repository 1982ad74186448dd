package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"patriotpilot/internal/indexer"
)

// IndexAction rebuilds the persisted pair from DATA_DIR.
func IndexAction(ctx context.Context, cmd *cli.Command) error {
	mirror := cmd.Bool("mirror")

	c, err := newContainer()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	pipeline, err := c.Pipeline(mirror)
	if err != nil {
		return err
	}

	slog.Info("Starting index build", "data_dir", c.Config.DataDir, "store", c.Config.StoreBackend, "mirror", mirror)
	report, err := pipeline.Run(ctx)
	if report == nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	return writeReport(cmd.Root().Writer, report, err)
}

// writeReport prints report and returns buildErr unchanged. A report with an
// error means the pair was saved but mirroring failed.
func writeReport(w io.Writer, report *indexer.Report, buildErr error) error {
	fmt.Fprintf(w, "build:       %s\n", report.BuildID)
	fmt.Fprintf(w, "records:     %d (rejected %d, without chunks %d)\n", report.Records, report.Rejected, report.RecordsNoChunks)
	fmt.Fprintf(w, "skipped:     %d fields\n", report.Skips)
	fmt.Fprintf(w, "chunks:      %d\n", report.Chunks)
	fmt.Fprintf(w, "dimension:   %d\n", report.Dimension)
	fmt.Fprintf(w, "mirrored:    %t\n", report.Mirrored)
	return buildErr
}
