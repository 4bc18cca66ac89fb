package discount

import (
	"context"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lubart/discount-service/internal/domain/customer"
	"github.com/lubart/discount-service/internal/domain/lookup"
	"github.com/lubart/discount-service/internal/domain/order"
	"github.com/lubart/discount-service/internal/domain/product"
	"github.com/lubart/discount-service/internal/domain/value"
)

// --- Mock implementations ---

type mockCustomerLookup struct {
	customers map[int]*customer.Customer
	err       error
}

func (m *mockCustomerLookup) ByID(_ context.Context, id value.NumericID) (*customer.Customer, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.customers[id.Int()]
	if !ok {
		return nil, &lookup.UnavailableError{
			Entity:  "customer",
			ID:      strconv.Itoa(id.Int()),
			Code:    404,
			Message: "Customer with ID " + strconv.Itoa(id.Int()) + " does not exist",
		}
	}
	return c, nil
}

type mockProductLookup struct {
	products map[string]*product.Product
	err      error
	calls    []string
}

func (m *mockProductLookup) ByID(_ context.Context, id string) (*product.Product, error) {
	m.calls = append(m.calls, id)
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, &lookup.UnavailableError{
			Entity:  "product",
			ID:      id,
			Code:    404,
			Message: "Product with ID " + id + " does not exist",
		}
	}
	return p, nil
}

// --- Helpers ---

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func mustID(t *testing.T, v int) value.NumericID {
	t.Helper()
	id, err := value.NewNumericID(v)
	require.NoError(t, err)
	return id
}

func mustQty(t *testing.T, v int) value.Quantity {
	t.Helper()
	q, err := value.NewQuantity(v)
	require.NoError(t, err)
	return q
}

func mustPercent(t *testing.T, p int) value.Ratio {
	t.Helper()
	r, err := value.Percent(decimal.NewFromInt(int64(p)))
	require.NoError(t, err)
	return r
}

func newCustomer(t *testing.T, id int, revenue string) *customer.Customer {
	t.Helper()
	return &customer.Customer{
		ID:      mustID(t, id),
		Name:    "Customer " + strconv.Itoa(id),
		Revenue: dec(t, revenue),
	}
}

func newProduct(t *testing.T, id string, category int, price string) *product.Product {
	t.Helper()
	return &product.Product{
		ID:       id,
		Category: mustID(t, category),
		Price:    dec(t, price),
	}
}

type itemSpec struct {
	productID string
	quantity  int
	unitPrice string
}

func newOrder(t *testing.T, customerID int, items ...itemSpec) *order.Order {
	t.Helper()

	lineItems := make([]order.LineItem, 0, len(items))
	total := decimal.Zero
	for _, spec := range items {
		unitPrice := dec(t, spec.unitPrice)
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(spec.quantity)))
		lineItems = append(lineItems, order.LineItem{
			ProductID: spec.productID,
			Quantity:  mustQty(t, spec.quantity),
			UnitPrice: unitPrice,
			Discount:  decimal.Zero,
			Total:     lineTotal,
		})
		total = total.Add(lineTotal)
	}

	return &order.Order{
		ID:            mustID(t, 1),
		CustomerID:    mustID(t, customerID),
		Items:         lineItems,
		Total:         total,
		TotalDiscount: decimal.Zero,
	}
}

// assertInvariant checks that the order total equals the undiscounted item
// sum minus the cumulative discount.
func assertInvariant(t *testing.T, o *order.Order) {
	t.Helper()

	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity.Int()))))
	}
	assert.True(t, o.Total.Equal(sum.Sub(o.TotalDiscount)),
		"total %s != item sum %s - discount %s", o.Total, sum, o.TotalDiscount)
}

// --- Gold customer rule ---

func TestGoldCustomer_DiscountApplied(t *testing.T) {
	customers := &mockCustomerLookup{customers: map[int]*customer.Customer{
		2: newCustomer(t, 2, "1505.95"),
	}}
	o := newOrder(t, 2, itemSpec{productID: "B102", quantity: 5, unitPrice: "4.99"})

	err := GoldCustomer(context.Background(), o, customers, decimal.NewFromInt(1000), mustPercent(t, 10))
	require.NoError(t, err)

	assert.True(t, o.TotalDiscount.Equal(dec(t, "2.50")), "discount = %s", o.TotalDiscount)
	assert.True(t, o.Total.Equal(dec(t, "22.45")), "total = %s", o.Total)
	assertInvariant(t, o)
}

func TestGoldCustomer_BelowThreshold(t *testing.T) {
	customers := &mockCustomerLookup{customers: map[int]*customer.Customer{
		1: newCustomer(t, 1, "492.12"),
	}}
	o := newOrder(t, 1, itemSpec{productID: "B102", quantity: 10, unitPrice: "4.99"})

	err := GoldCustomer(context.Background(), o, customers, decimal.NewFromInt(1000), mustPercent(t, 10))
	require.NoError(t, err)

	assert.True(t, o.TotalDiscount.IsZero())
	assert.True(t, o.Total.Equal(dec(t, "49.90")))
	assertInvariant(t, o)
}

func TestGoldCustomer_RevenueEqualsThreshold(t *testing.T) {
	customers := &mockCustomerLookup{customers: map[int]*customer.Customer{
		5: newCustomer(t, 5, "1000"),
	}}
	o := newOrder(t, 5, itemSpec{productID: "A101", quantity: 2, unitPrice: "9.75"})

	err := GoldCustomer(context.Background(), o, customers, decimal.NewFromInt(1000), mustPercent(t, 10))
	require.NoError(t, err)

	assert.True(t, o.TotalDiscount.Equal(dec(t, "1.95")))
	assertInvariant(t, o)
}

func TestGoldCustomer_CustomerUnavailable(t *testing.T) {
	customers := &mockCustomerLookup{}
	o := newOrder(t, 9, itemSpec{productID: "B102", quantity: 5, unitPrice: "4.99"})

	err := GoldCustomer(context.Background(), o, customers, decimal.NewFromInt(1000), mustPercent(t, 10))

	var unavailErr *lookup.UnavailableError
	require.ErrorAs(t, err, &unavailErr)
	assert.Equal(t, 404, unavailErr.Code)
	assert.True(t, o.Total.Equal(dec(t, "24.95")), "order must be unmodified")
	assert.True(t, o.TotalDiscount.IsZero())
}

// --- Next unit free rule ---

func TestNextUnitFree_SixthSwitcherFree(t *testing.T) {
	products := &mockProductLookup{products: map[string]*product.Product{
		"B102": newProduct(t, "B102", 2, "4.99"),
	}}
	o := newOrder(t, 1, itemSpec{productID: "B102", quantity: 10, unitPrice: "4.99"})

	err := NextUnitFree(context.Background(), o, products, mustQty(t, 5), mustID(t, 2))
	require.NoError(t, err)

	// 10 units, one free per 6: floor(10/6) = 1 free unit.
	assert.True(t, o.TotalDiscount.Equal(dec(t, "4.99")))
	assert.True(t, o.Total.Equal(dec(t, "44.91")))
	assert.True(t, o.Items[0].Discount.Equal(dec(t, "4.99")))
	assert.True(t, o.Items[0].Total.Equal(dec(t, "44.91")))
	assertInvariant(t, o)
}

func TestNextUnitFree_CategoryMismatch(t *testing.T) {
	products := &mockProductLookup{products: map[string]*product.Product{
		"A101": newProduct(t, "A101", 1, "9.75"),
	}}
	o := newOrder(t, 1, itemSpec{productID: "A101", quantity: 10, unitPrice: "9.75"})

	err := NextUnitFree(context.Background(), o, products, mustQty(t, 5), mustID(t, 2))
	require.NoError(t, err)

	assert.True(t, o.TotalDiscount.IsZero())
	assert.True(t, o.Items[0].Discount.IsZero())
	assertInvariant(t, o)
}

func TestNextUnitFree_QuantityAtMinimum(t *testing.T) {
	products := &mockProductLookup{products: map[string]*product.Product{
		"B102": newProduct(t, "B102", 2, "4.99"),
	}}
	o := newOrder(t, 1, itemSpec{productID: "B102", quantity: 5, unitPrice: "4.99"})

	err := NextUnitFree(context.Background(), o, products, mustQty(t, 5), mustID(t, 2))
	require.NoError(t, err)

	assert.True(t, o.TotalDiscount.IsZero())
	assertInvariant(t, o)
}

func TestNextUnitFree_MultipleFreeUnits(t *testing.T) {
	products := &mockProductLookup{products: map[string]*product.Product{
		"B101": newProduct(t, "B101", 2, "4.99"),
	}}
	o := newOrder(t, 1, itemSpec{productID: "B101", quantity: 13, unitPrice: "4.99"})

	err := NextUnitFree(context.Background(), o, products, mustQty(t, 5), mustID(t, 2))
	require.NoError(t, err)

	// floor(13/6) = 2 free units.
	assert.True(t, o.TotalDiscount.Equal(dec(t, "9.98")))
	assertInvariant(t, o)
}

func TestNextUnitFree_AbortsOnUnresolvedProduct(t *testing.T) {
	// The first product resolves and qualifies, the second does not exist.
	// The whole rule must fail with no partial discount applied.
	products := &mockProductLookup{products: map[string]*product.Product{
		"B102": newProduct(t, "B102", 2, "4.99"),
	}}
	o := newOrder(t, 1,
		itemSpec{productID: "B102", quantity: 10, unitPrice: "4.99"},
		itemSpec{productID: "Z999", quantity: 1, unitPrice: "1.00"},
	)

	err := NextUnitFree(context.Background(), o, products, mustQty(t, 5), mustID(t, 2))

	var unavailErr *lookup.UnavailableError
	require.ErrorAs(t, err, &unavailErr)
	assert.Equal(t, "Z999", unavailErr.ID)

	assert.True(t, o.TotalDiscount.IsZero(), "no partial discount may leak")
	assert.True(t, o.Items[0].Discount.IsZero())
	assert.True(t, o.Total.Equal(dec(t, "50.90")))
	assert.Equal(t, []string{"B102", "Z999"}, products.calls, "lookups run in item order")
}

// --- Cheapest in category rule ---

func TestCheapestInCategory_CheapestToolDiscounted(t *testing.T) {
	products := &mockProductLookup{products: map[string]*product.Product{
		"A101": newProduct(t, "A101", 1, "9.75"),
		"A102": newProduct(t, "A102", 1, "49.50"),
	}}
	o := newOrder(t, 3,
		itemSpec{productID: "A101", quantity: 2, unitPrice: "9.75"},
		itemSpec{productID: "A102", quantity: 1, unitPrice: "49.50"},
	)

	err := CheapestInCategory(context.Background(), o, products, mustID(t, 1), mustPercent(t, 20), mustQty(t, 2))
	require.NoError(t, err)

	// Cheapest unit price is 9.75; discount = round(9.75 * 0.20, 2) = 1.95.
	assert.True(t, o.TotalDiscount.Equal(dec(t, "1.95")))
	assert.True(t, o.Total.Equal(dec(t, "67.05")))
	assert.True(t, o.Items[0].Discount.Equal(dec(t, "1.95")))
	assert.True(t, o.Items[1].Discount.IsZero())
	assertInvariant(t, o)
}

func TestCheapestInCategory_BelowMinimumUnits(t *testing.T) {
	products := &mockProductLookup{products: map[string]*product.Product{
		"A102": newProduct(t, "A102", 1, "49.50"),
	}}
	o := newOrder(t, 3, itemSpec{productID: "A102", quantity: 1, unitPrice: "49.50"})

	err := CheapestInCategory(context.Background(), o, products, mustID(t, 1), mustPercent(t, 20), mustQty(t, 2))
	require.NoError(t, err)

	assert.True(t, o.TotalDiscount.IsZero())
	assertInvariant(t, o)
}

func TestCheapestInCategory_QuantityCountsAsUnits(t *testing.T) {
	// A single line with quantity 2 satisfies the two-unit minimum.
	products := &mockProductLookup{products: map[string]*product.Product{
		"A101": newProduct(t, "A101", 1, "9.75"),
	}}
	o := newOrder(t, 3, itemSpec{productID: "A101", quantity: 2, unitPrice: "9.75"})

	err := CheapestInCategory(context.Background(), o, products, mustID(t, 1), mustPercent(t, 20), mustQty(t, 2))
	require.NoError(t, err)

	assert.True(t, o.TotalDiscount.Equal(dec(t, "1.95")))
	assertInvariant(t, o)
}

func TestCheapestInCategory_FirstSeenWinsOnTie(t *testing.T) {
	products := &mockProductLookup{products: map[string]*product.Product{
		"A103": newProduct(t, "A103", 1, "5.00"),
		"A104": newProduct(t, "A104", 1, "5.00"),
	}}
	o := newOrder(t, 3,
		itemSpec{productID: "A103", quantity: 1, unitPrice: "5.00"},
		itemSpec{productID: "A104", quantity: 1, unitPrice: "5.00"},
	)

	err := CheapestInCategory(context.Background(), o, products, mustID(t, 1), mustPercent(t, 20), mustQty(t, 2))
	require.NoError(t, err)

	assert.True(t, o.Items[0].Discount.Equal(dec(t, "1.00")), "first seen line wins the tie")
	assert.True(t, o.Items[1].Discount.IsZero())
	assertInvariant(t, o)
}

func TestCheapestInCategory_IgnoresOtherCategories(t *testing.T) {
	products := &mockProductLookup{products: map[string]*product.Product{
		"A101": newProduct(t, "A101", 1, "9.75"),
		"B102": newProduct(t, "B102", 2, "4.99"),
	}}
	o := newOrder(t, 3,
		itemSpec{productID: "B102", quantity: 5, unitPrice: "4.99"},
		itemSpec{productID: "A101", quantity: 2, unitPrice: "9.75"},
	)

	err := CheapestInCategory(context.Background(), o, products, mustID(t, 1), mustPercent(t, 20), mustQty(t, 2))
	require.NoError(t, err)

	// The cheaper switcher line must not win: only tools count.
	assert.True(t, o.Items[0].Discount.IsZero())
	assert.True(t, o.Items[1].Discount.Equal(dec(t, "1.95")))
	assertInvariant(t, o)
}

func TestCheapestInCategory_AbortsOnUnresolvedProduct(t *testing.T) {
	products := &mockProductLookup{products: map[string]*product.Product{
		"A101": newProduct(t, "A101", 1, "9.75"),
	}}
	o := newOrder(t, 3,
		itemSpec{productID: "A101", quantity: 2, unitPrice: "9.75"},
		itemSpec{productID: "Z999", quantity: 1, unitPrice: "1.00"},
	)

	err := CheapestInCategory(context.Background(), o, products, mustID(t, 1), mustPercent(t, 20), mustQty(t, 2))

	var unavailErr *lookup.UnavailableError
	require.ErrorAs(t, err, &unavailErr)
	assert.True(t, o.TotalDiscount.IsZero())
	assert.True(t, o.Items[0].Discount.IsZero())
}

// --- Engine dispatch ---

func testParams(t *testing.T) Params {
	t.Helper()
	return Params{
		GoldRevenueThreshold: decimal.NewFromInt(1000),
		GoldDiscount:         mustPercent(t, 10),
		SwitcherCategory:     mustID(t, 2),
		SwitcherMinQuantity:  mustQty(t, 5),
		ToolCategory:         mustID(t, 1),
		ToolDiscount:         mustPercent(t, 20),
		ToolMinUnits:         mustQty(t, 2),
	}
}

func TestEngine_Apply(t *testing.T) {
	customers := &mockCustomerLookup{customers: map[int]*customer.Customer{
		2: newCustomer(t, 2, "1505.95"),
	}}
	products := &mockProductLookup{products: map[string]*product.Product{
		"B102": newProduct(t, "B102", 2, "4.99"),
	}}
	engine := NewEngine(customers, products, testParams(t))

	t.Run("gold-customer", func(t *testing.T) {
		o := newOrder(t, 2, itemSpec{productID: "B102", quantity: 5, unitPrice: "4.99"})
		require.NoError(t, engine.Apply(context.Background(), RuleGoldCustomer, o))
		assert.True(t, o.TotalDiscount.Equal(dec(t, "2.50")))
	})

	t.Run("sixth-switcher-for-free", func(t *testing.T) {
		o := newOrder(t, 2, itemSpec{productID: "B102", quantity: 10, unitPrice: "4.99"})
		require.NoError(t, engine.Apply(context.Background(), RuleSixthSwitcher, o))
		assert.True(t, o.TotalDiscount.Equal(dec(t, "4.99")))
	})

	t.Run("cheapest-tool", func(t *testing.T) {
		o := newOrder(t, 2, itemSpec{productID: "B102", quantity: 10, unitPrice: "4.99"})
		require.NoError(t, engine.Apply(context.Background(), RuleCheapestTool, o))
		assert.True(t, o.TotalDiscount.IsZero(), "switchers are not tools")
	})

	t.Run("unknown rule", func(t *testing.T) {
		o := newOrder(t, 2, itemSpec{productID: "B102", quantity: 5, unitPrice: "4.99"})
		err := engine.Apply(context.Background(), "half-price-fridays", o)

		var unknownErr *UnknownRuleError
		require.ErrorAs(t, err, &unknownErr)
		assert.Equal(t, "half-price-fridays", unknownErr.Rule)
		assert.True(t, o.TotalDiscount.IsZero())
	})
}
