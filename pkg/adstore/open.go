package adstore

import (
	"context"
	"fmt"

	"github.com/wilhg/adformats/pkg/adformat"
	"github.com/wilhg/adformats/pkg/store"
)

// OpenRepository opens the named backend and seeds it with n records. The
// seed replaces whatever the backend held, so no state outlives the process
// that opened it. The backend package must be linked in for its name to resolve.
func OpenRepository(ctx context.Context, backend, dsn string, n int) (store.Repository, error) {
	repo, err := store.Open(ctx, backend, dsn)
	if err != nil {
		return nil, err
	}
	if err := repo.Reset(ctx, adformat.Seed(n)); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("seed %s backend: %w", backend, err)
	}
	return repo, nil
}
