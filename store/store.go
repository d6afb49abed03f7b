// Package store persists admins, products and orders.
//
// Two implementations exist: MongoStore for deployments and MemoryStore for
// development and tests. Both honour the same contract for the stock ledger:
// AdjustQuantity is a single conditional update, so a product's quantity can
// never be driven below zero regardless of how callers interleave.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pos-backoffice/models"
)

var (
	ErrNotFound             = errors.New("store: not found")
	ErrDuplicate            = errors.New("store: duplicate key")
	ErrInsufficientQuantity = errors.New("store: insufficient quantity")
	ErrStale                = errors.New("store: value changed concurrently")
)

type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error)
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	List(ctx context.Context) ([]models.Admin, error)

	// UpdateProfile sets the non-nil profile fields and nothing else.
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate, now time.Time) (*models.Admin, error)
	SetPassword(ctx context.Context, id primitive.ObjectID, passwordHash string, now time.Time) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires *time.Time) error
	// ClearResetToken removes the reset token only while it still equals token.
	ClearResetToken(ctx context.Context, id primitive.ObjectID, token string) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// ConsumeVerificationToken marks the holder of an unexpired token as
	// verified and clears the token in one step. Unknown and expired tokens
	// both yield ErrNotFound.
	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*models.Admin, error)

	// ConsumeResetToken sets the password hash of the holder of an unexpired
	// reset token and clears the token in one step.
	ConsumeResetToken(ctx context.Context, token string, now time.Time, passwordHash string) (*models.Admin, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	// Update sets the non-nil descriptive fields. Quantity is ignored; it
	// only moves through AdjustQuantity and ReplaceQuantity.
	Update(ctx context.Context, id primitive.ObjectID, upd models.ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// AdjustQuantity adds delta to the product's quantity if the result
	// stays non-negative. Returns ErrInsufficientQuantity otherwise.
	AdjustQuantity(ctx context.Context, id primitive.ObjectID, delta int) error

	// ReplaceQuantity sets quantity to `to` only while it still equals
	// `from`. Returns ErrStale otherwise.
	ReplaceQuantity(ctx context.Context, id primitive.ObjectID, from, to int) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)

	// Replace writes order only while the stored copy still carries
	// updatedAt. Returns ErrStale when another writer got there first.
	Replace(ctx context.Context, order *models.Order, updatedAt time.Time) error
	// Delete removes the order only while it still carries updatedAt.
	Delete(ctx context.Context, id primitive.ObjectID, updatedAt time.Time) error
	HasPendingWithProduct(ctx context.Context, productID primitive.ObjectID) (bool, error)
}

// Store groups the repositories behind one transaction scope.
type Store interface {
	Admins() AdminRepository
	Products() ProductRepository
	Orders() OrderRepository

	// WithTransaction runs fn so that either all of its writes persist or
	// none do. fn must perform its store calls with the ctx it is given and
	// may be invoked more than once on transient conflicts.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
