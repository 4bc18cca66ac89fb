// Package product defines the product read model resolved from the external
// entity service.
package product

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/lubart/discount-service/internal/domain/value"
)

// Product carries the facts the discount rules need about a catalog item.
type Product struct {
	ID          string
	Description string
	Category    value.NumericID
	Price       decimal.Decimal
}

// Lookup resolves products by their string identifier.
type Lookup interface {
	ByID(ctx context.Context, id string) (*Product, error)
}
