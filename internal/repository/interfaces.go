package repository

import (
	"context"
	"errors"

	"github.com/vladyslavplus/orderly/internal/domain"
)

// ErrNotUpdated signals a conditional write that matched no row. For the
// token CAS paths this means another writer won the race.
var ErrNotUpdated = errors.New("no rows updated")

// UserRepository exposes persistence for platform users. Deleting a user
// cascades to its refresh tokens.
type UserRepository interface {
	GetByID(ctx context.Context, userID int64) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	Update(ctx context.Context, user domain.User) (domain.User, error)
	Delete(ctx context.Context, userID int64) error
}

// TokenRepository handles refresh token persistence. RevokeIfActive and
// Rotate are single atomic units: concurrent callers racing on the same
// token observe ErrNotUpdated, never a half-applied state.
type TokenRepository interface {
	GetByToken(ctx context.Context, token string) (domain.RefreshToken, error)
	Insert(ctx context.Context, token domain.RefreshToken) (domain.RefreshToken, error)
	RevokeIfActive(ctx context.Context, tokenID int64) error
	Rotate(ctx context.Context, oldID int64, next domain.RefreshToken) (domain.RefreshToken, error)
	DeleteByUser(ctx context.Context, userID int64) error
}

// InventoryDelta is one signed stock adjustment applied by the reconciler.
type InventoryDelta struct {
	ProductID int64
	Delta     int
}

// ProductRepository exposes catalog persistence. ApplyDeltas runs every
// adjustment in one transaction, floors quantities at zero, and reports
// product ids that did not resolve instead of failing the batch.
type ProductRepository interface {
	GetByID(ctx context.Context, productID int64) (domain.Product, error)
	GetByName(ctx context.Context, name string) (domain.Product, error)
	Create(ctx context.Context, product domain.Product) (domain.Product, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	Delete(ctx context.Context, productID int64) error
	ApplyDeltas(ctx context.Context, deltas []InventoryDelta) (missing []int64, err error)
}
