// Package customer defines the customer read model resolved from the
// external entity service.
package customer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/lubart/discount-service/internal/domain/value"
)

// Customer carries the facts the discount rules need about a buyer.
type Customer struct {
	ID      value.NumericID
	Name    string
	Since   string
	Revenue decimal.Decimal
}

// Lookup resolves customers by their numeric identifier.
type Lookup interface {
	ByID(ctx context.Context, id value.NumericID) (*Customer, error)
}
