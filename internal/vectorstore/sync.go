package vectorstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrOutOfSync is returned when a collection does not hold exactly the
// points of the expected build.
var ErrOutOfSync = errors.New("vector store out of sync with index")

// CheckSync verifies that collection holds one point per chunk and that every
// point was written by buildID. Mismatches wrap ErrOutOfSync; a store that
// cannot be queried returns its own error.
func CheckSync(ctx context.Context, store VectorStore, collection, buildID string, chunks int) error {
	if buildID == "" {
		return fmt.Errorf("%w: index has no build id", ErrOutOfSync)
	}

	total, err := store.Count(ctx, collection)
	if err != nil {
		return err
	}
	if total != chunks {
		return fmt.Errorf("%w: collection %q holds %d points, index holds %d chunks", ErrOutOfSync, collection, total, chunks)
	}

	tagged, err := store.CountBuild(ctx, collection, buildID)
	if err != nil {
		return err
	}
	if tagged != total {
		return fmt.Errorf("%w: %d of %d points in %q belong to build %s", ErrOutOfSync, tagged, total, collection, buildID)
	}
	return nil
}
