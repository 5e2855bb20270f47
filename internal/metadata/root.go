package metadata

import (
	"context"
	"fmt"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// EnsureDummyRoot materializes the containment sentinel node under the well
// known id. Calling it again is a no-op.
func EnsureDummyRoot(ctx context.Context, tx repository.Tx) error {
	node, err := tx.GetNode(ctx, domain.DummyRootID)
	if err != nil {
		return err
	}
	if node != nil {
		return nil
	}

	node = domain.NewNode(domain.DummyRootID, domain.LabelDummyRoot)
	node.SetProperty(domain.PropName, domain.DummyRootClass)
	if err := tx.CreateNode(ctx, node); err != nil {
		return fmt.Errorf("failed to create dummy root: %w", err)
	}
	return nil
}
