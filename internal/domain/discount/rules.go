package discount

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/lubart/discount-service/internal/domain/customer"
	"github.com/lubart/discount-service/internal/domain/order"
	"github.com/lubart/discount-service/internal/domain/product"
	"github.com/lubart/discount-service/internal/domain/value"
)

// GoldCustomer reduces the order total by ratio when the customer's lifetime
// revenue reaches threshold. The discount is computed on the current order
// total, not per line, and rounded to 2 decimal places.
func GoldCustomer(
	ctx context.Context,
	o *order.Order,
	customers customer.Lookup,
	threshold decimal.Decimal,
	ratio value.Ratio,
) error {
	c, err := customers.ByID(ctx, o.CustomerID)
	if err != nil {
		return errors.Wrap(err, "fetch customer")
	}

	if c.Revenue.GreaterThanOrEqual(threshold) {
		o.AddDiscount(o.Total.Mul(ratio.Decimal()).Round(2))
	}

	return nil
}

// NextUnitFree grants one free unit per (minQty+1) units for every line item
// in the given category holding more than minQty units. Lines outside the
// category or at or below minQty are untouched.
//
// Lookups run sequentially in item order. Processing stops at the first
// product that cannot be resolved; the error is returned and the order is
// left unmodified.
func NextUnitFree(
	ctx context.Context,
	o *order.Order,
	products product.Lookup,
	minQty value.Quantity,
	category value.NumericID,
) error {
	type grant struct {
		item   *order.LineItem
		amount decimal.Decimal
	}
	var grants []grant

	for i := range o.Items {
		item := &o.Items[i]
		p, err := products.ByID(ctx, item.ProductID)
		if err != nil {
			return errors.Wrapf(err, "fetch product %s", item.ProductID)
		}
		if item.Quantity.Int() <= minQty.Int() || !p.Category.Equal(category) {
			continue
		}

		freeUnits := item.Quantity.Int() / (minQty.Int() + 1)
		amount := decimal.NewFromInt(int64(freeUnits)).Mul(item.UnitPrice)
		grants = append(grants, grant{item: item, amount: amount})
	}

	// All products resolved; commit the staged discounts.
	for _, g := range grants {
		g.item.AddDiscount(g.amount)
		o.AddDiscount(g.amount)
	}

	return nil
}

// CheapestInCategory applies ratio to the unit price of the cheapest line in
// the category when the order holds at least minUnits units of it, counting
// each line once per quantity unit. The first line seen wins on price ties,
// so lookups must not be reordered.
//
// Failure semantics match NextUnitFree: the first unresolved product aborts
// the rule with the order unmodified.
func CheapestInCategory(
	ctx context.Context,
	o *order.Order,
	products product.Lookup,
	category value.NumericID,
	ratio value.Ratio,
	minUnits value.Quantity,
) error {
	var (
		unitCount int
		cheapest  *order.LineItem
	)

	for i := range o.Items {
		item := &o.Items[i]
		p, err := products.ByID(ctx, item.ProductID)
		if err != nil {
			return errors.Wrapf(err, "fetch product %s", item.ProductID)
		}
		if !p.Category.Equal(category) {
			continue
		}

		unitCount += item.Quantity.Int()
		if cheapest == nil || item.UnitPrice.LessThan(cheapest.UnitPrice) {
			cheapest = item
		}
	}

	if cheapest == nil || unitCount < minUnits.Int() {
		return nil
	}

	amount := cheapest.UnitPrice.Mul(ratio.Decimal()).Round(2)
	cheapest.AddDiscount(amount)
	o.AddDiscount(amount)

	return nil
}
