// Package discount implements the promotional discount rules applied to a
// purchase order. Each rule is a pure function of the order, the injected
// lookups and its parameters; the Engine binds the configured parameters to
// the named rules the service exposes.
package discount

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lubart/discount-service/internal/domain/customer"
	"github.com/lubart/discount-service/internal/domain/order"
	"github.com/lubart/discount-service/internal/domain/product"
	"github.com/lubart/discount-service/internal/domain/value"
)

// Rule names accepted by Engine.Apply. They match the discount endpoints of
// the service.
const (
	RuleGoldCustomer  = "gold-customer"
	RuleSixthSwitcher = "sixth-switcher-for-free"
	RuleCheapestTool  = "cheapest-tool"
)

// UnknownRuleError reports a request for a discount rule that does not exist.
type UnknownRuleError struct {
	Rule string
}

func (e *UnknownRuleError) Error() string {
	return fmt.Sprintf("unknown discount rule %q", e.Rule)
}

// Params holds the externally configured thresholds and category identifiers
// for the built-in promotions. Values come from the service configuration,
// never from compiled-in literals.
type Params struct {
	// GoldRevenueThreshold is the lifetime revenue qualifying a customer for
	// the gold discount.
	GoldRevenueThreshold decimal.Decimal
	// GoldDiscount is the order-level discount granted to gold customers.
	GoldDiscount value.Ratio
	// SwitcherCategory identifies products eligible for the next-unit-free
	// promotion.
	SwitcherCategory value.NumericID
	// SwitcherMinQuantity is the unit count a line must exceed before one
	// unit per (SwitcherMinQuantity+1) is granted for free.
	SwitcherMinQuantity value.Quantity
	// ToolCategory identifies products eligible for the cheapest-in-category
	// promotion.
	ToolCategory value.NumericID
	// ToolDiscount is applied to the unit price of the cheapest tool line.
	ToolDiscount value.Ratio
	// ToolMinUnits is the minimum number of tool units in the order before
	// the cheapest-tool discount applies.
	ToolMinUnits value.Quantity
}

// Engine applies named discount rules to orders, consulting the injected
// customer and product lookups. Exactly one rule is applied per order.
type Engine struct {
	customers customer.Lookup
	products  product.Lookup
	params    Params
}

// NewEngine creates an Engine with the required lookups and rule parameters.
func NewEngine(customers customer.Lookup, products product.Lookup, params Params) *Engine {
	return &Engine{
		customers: customers,
		products:  products,
		params:    params,
	}
}

// Apply runs the named rule against the order. An unrecognized name returns
// *UnknownRuleError; it is never silently ignored.
func (e *Engine) Apply(ctx context.Context, rule string, o *order.Order) error {
	switch rule {
	case RuleGoldCustomer:
		return GoldCustomer(ctx, o, e.customers, e.params.GoldRevenueThreshold, e.params.GoldDiscount)
	case RuleSixthSwitcher:
		return NextUnitFree(ctx, o, e.products, e.params.SwitcherMinQuantity, e.params.SwitcherCategory)
	case RuleCheapestTool:
		return CheapestInCategory(ctx, o, e.products, e.params.ToolCategory, e.params.ToolDiscount, e.params.ToolMinUnits)
	default:
		return &UnknownRuleError{Rule: rule}
	}
}
