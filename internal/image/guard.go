package image

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gallery-api/internal/auth"
)

var (
	ErrNotFound  = errors.New("image not found")
	ErrForbidden = errors.New("not the image owner")
)

// OwnerLookup resolves an image id to its owner. *Repository satisfies it.
type OwnerLookup interface {
	AuthorID(ctx context.Context, id string) (string, error)
}

// Guard enforces single-owner access on mutating image operations. It runs
// after the auth middleware (identity already established) and before any
// write is attempted.
type Guard struct {
	owners OwnerLookup
}

func NewGuard(owners OwnerLookup) *Guard {
	return &Guard{owners: owners}
}

// AuthorizeMutation permits the mutation only when the image exists and the
// identity is its recorded owner.
func (g *Guard) AuthorizeMutation(ctx context.Context, imageID string, identity auth.Identity) error {
	ownerID, err := g.owners.AuthorID(ctx, imageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("resolve image owner: %w", err)
	}

	if ownerID != identity.Username {
		return ErrForbidden
	}

	return nil
}
