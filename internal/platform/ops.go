package platform

import (
	"context"
	"fmt"

	"github.com/aretw0/mulch/pkg/core"
)

// Sync performs a synchronization (pull/push) of the site.
func Sync(path string, opts ...Option) error {
	repo, err := Init(path, opts...)
	if err != nil {
		return err
	}

	syncable, ok := repo.(core.Syncable)
	if !ok {
		return fmt.Errorf("repository does not support sync")
	}

	return syncable.Sync(context.Background())
}
