// Package order defines the discountable order aggregate and its validating
// factory.
package order

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/lubart/discount-service/internal/domain/value"
)

// ValidationError reports the first malformed or missing field found in the
// raw order input. Its message is surfaced verbatim to the caller.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Wrong input '%s' value", e.Field)
}

// LineItem is a single product entry within an order.
type LineItem struct {
	ProductID string
	Quantity  value.Quantity
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
}

// AddDiscount applies amount to the line, increasing its discount and
// decreasing its total.
func (li *LineItem) AddDiscount(amount decimal.Decimal) {
	li.Discount = li.Discount.Add(amount)
	li.Total = li.Total.Sub(amount)
}

// Order is the validated aggregate of line items subject to discounting.
// An Order is owned by a single request flow: it is built once from untrusted
// input, mutated by at most one discount rule, serialized and discarded.
type Order struct {
	ID            value.NumericID
	CustomerID    value.NumericID
	Items         []LineItem
	Total         decimal.Decimal
	TotalDiscount decimal.Decimal
}

// AddDiscount applies an order-level discount amount, keeping the invariant
// that the total equals the undiscounted item sum minus TotalDiscount.
func (o *Order) AddDiscount(amount decimal.Decimal) {
	o.TotalDiscount = o.TotalDiscount.Add(amount)
	o.Total = o.Total.Sub(amount)
}

// BuildOrder constructs an Order from an untyped source mapping, typically a
// decoded JSON body. Numeric fields may arrive as JSON numbers or as numeric
// strings; the upstream data feed uses string-typed numbers throughout.
//
// Fields are checked in a fixed order (id, customer-id, items and each item's
// fields, total) and the first violation is returned as a *ValidationError.
// Errors are never aggregated.
func BuildOrder(source map[string]any) (*Order, error) {
	rawID, ok := intField(source, "id")
	if !ok || rawID <= 0 {
		return nil, &ValidationError{Field: "id"}
	}
	rawCustomerID, ok := intField(source, "customer-id")
	if !ok || rawCustomerID <= 0 {
		return nil, &ValidationError{Field: "customer-id"}
	}

	rawItems, ok := source["items"].([]any)
	if !ok || len(rawItems) == 0 {
		return nil, &ValidationError{Field: "items"}
	}

	items := make([]LineItem, 0, len(rawItems))
	for _, rawItem := range rawItems {
		fields, ok := rawItem.(map[string]any)
		if !ok || len(fields) == 0 {
			return nil, &ValidationError{Field: "items"}
		}
		item, err := buildLineItem(fields)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	total, ok := decimalField(source, "total")
	if !ok || !total.IsPositive() {
		return nil, &ValidationError{Field: "total"}
	}

	id, err := value.NewNumericID(rawID)
	if err != nil {
		return nil, &ValidationError{Field: "id"}
	}
	customerID, err := value.NewNumericID(rawCustomerID)
	if err != nil {
		return nil, &ValidationError{Field: "customer-id"}
	}

	return &Order{
		ID:            id,
		CustomerID:    customerID,
		Items:         items,
		Total:         total,
		TotalDiscount: decimal.Zero,
	}, nil
}

func buildLineItem(fields map[string]any) (LineItem, error) {
	productID, ok := fields["product-id"].(string)
	if !ok || productID == "" {
		return LineItem{}, &ValidationError{Field: "product-id"}
	}
	rawQty, ok := intField(fields, "quantity")
	if !ok || rawQty <= 0 {
		return LineItem{}, &ValidationError{Field: "quantity"}
	}
	unitPrice, ok := decimalField(fields, "unit-price")
	if !ok || !unitPrice.IsPositive() {
		return LineItem{}, &ValidationError{Field: "unit-price"}
	}
	total, ok := decimalField(fields, "total")
	if !ok || !total.IsPositive() {
		return LineItem{}, &ValidationError{Field: "total"}
	}

	quantity, err := value.NewQuantity(rawQty)
	if err != nil {
		return LineItem{}, &ValidationError{Field: "quantity"}
	}

	return LineItem{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Discount:  decimal.Zero,
		Total:     total,
	}, nil
}

// intField reads a whole number that may arrive as a json.Number, a numeric
// string, a float64 or an int.
func intField(source map[string]any, key string) (int, bool) {
	switch v := source[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// decimalField reads a decimal number that may arrive as a json.Number, a
// numeric string, a float64 or an int.
func decimalField(source map[string]any, key string) (decimal.Decimal, bool) {
	switch v := source[key].(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	default:
		return decimal.Decimal{}, false
	}
}
