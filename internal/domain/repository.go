package domain

import (
	"context"
	"errors"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the contract for product storage
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id int64) (*Product, error)
	// FindAll returns every product, or only unsold ones when onlyAvailable
	// is set. Result order is whatever the store yields.
	FindAll(ctx context.Context, onlyAvailable bool) ([]*Product, error)
	// Update applies a partial column update. A missing row reports
	// ErrProductNotFound.
	Update(ctx context.Context, id int64, fields map[string]any) error
}
