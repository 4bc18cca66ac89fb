// Package value holds the validated numeric primitives shared by the order
// model and the discount rules. Each constructor enforces its invariant so
// illegal values (negative quantities, non-positive identifiers, out-of-range
// ratios) cannot exist past the boundary.
package value

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InvalidValueError reports a value object constructed with an argument that
// violates its invariant.
type InvalidValueError struct {
	Kind   string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Kind, e.Reason)
}

// Quantity is a non-negative unit count.
type Quantity struct {
	value int
}

// NewQuantity validates that v is not negative.
func NewQuantity(v int) (Quantity, error) {
	if v < 0 {
		return Quantity{}, &InvalidValueError{Kind: "quantity", Reason: "cannot be smaller than 0"}
	}
	return Quantity{value: v}, nil
}

// Int returns the quantity as a plain int.
func (q Quantity) Int() int { return q.value }

// NumericID is a strictly positive integer identifier for customers and
// product categories.
type NumericID struct {
	value int
}

// NewNumericID validates that v is greater than zero.
func NewNumericID(v int) (NumericID, error) {
	if v <= 0 {
		return NumericID{}, &InvalidValueError{Kind: "numeric ID", Reason: "cannot be smaller or equal than 0"}
	}
	return NumericID{value: v}, nil
}

// Int returns the identifier as a plain int.
func (id NumericID) Int() int { return id.value }

// Equal reports whether two identifiers refer to the same entity.
func (id NumericID) Equal(other NumericID) bool { return id.value == other.value }

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Ratio is a discount fraction bounded to [0, 1].
type Ratio struct {
	value decimal.Decimal
}

// NewRatio validates that v lies between 0 and 1 inclusive.
func NewRatio(v decimal.Decimal) (Ratio, error) {
	if v.IsNegative() {
		return Ratio{}, &InvalidValueError{Kind: "ratio", Reason: "cannot be lower than 0"}
	}
	if v.GreaterThan(one) {
		return Ratio{}, &InvalidValueError{Kind: "ratio", Reason: "cannot be higher than 100%"}
	}
	return Ratio{value: v}, nil
}

// Percent builds a Ratio from a percentage between 0 and 100.
func Percent(p decimal.Decimal) (Ratio, error) {
	return NewRatio(p.Div(hundred))
}

// Decimal returns the ratio as a decimal fraction.
func (r Ratio) Decimal() decimal.Decimal { return r.value }
