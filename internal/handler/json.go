package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lubart/discount-service/internal/domain/discount"
	"github.com/lubart/discount-service/internal/domain/lookup"
	"github.com/lubart/discount-service/internal/domain/order"
	"github.com/lubart/discount-service/internal/domain/value"
)

// decodeBody parses a JSON object into the untyped mapping BuildOrder
// expects. Numbers are preserved as json.Number so currency values survive
// without float truncation.
func decodeBody(body []byte) (map[string]any, error) {
	d := jx.DecodeBytes(body)
	v, err := decodeValue(d)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("body is not a JSON object")
	}
	return obj, nil
}

func decodeValue(d *jx.Decoder) (any, error) {
	switch d.Next() {
	case jx.Object:
		obj := make(map[string]any)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			v, err := decodeValue(d)
			if err != nil {
				return err
			}
			obj[key] = v
			return nil
		}); err != nil {
			return nil, err
		}
		return obj, nil
	case jx.Array:
		var arr []any
		if err := d.Arr(func(d *jx.Decoder) error {
			v, err := decodeValue(d)
			if err != nil {
				return err
			}
			arr = append(arr, v)
			return nil
		}); err != nil {
			return nil, err
		}
		return arr, nil
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		return json.Number(n.String()), nil
	case jx.Bool:
		return d.Bool()
	case jx.Null:
		return nil, d.Null()
	default:
		return nil, errors.New("unexpected JSON token")
	}
}

// writeOrder serializes the order with the wire field names of the upstream
// contract: kebab-case keys and plain JSON numbers for currency values.
func writeOrder(w http.ResponseWriter, o *order.Order) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int(o.ID.Int()) })
		e.Field("customer-id", func(e *jx.Encoder) { e.Int(o.CustomerID.Int()) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range o.Items {
					item := &o.Items[i]
					e.Obj(func(e *jx.Encoder) {
						e.Field("product-id", func(e *jx.Encoder) { e.Str(item.ProductID) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(item.Quantity.Int()) })
						e.Field("unit-price", func(e *jx.Encoder) { encodeDecimal(e, item.UnitPrice) })
						e.Field("discount", func(e *jx.Encoder) { encodeDecimal(e, item.Discount) })
						e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, item.Total) })
					})
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, o.Total) })
		e.Field("totalDiscount", func(e *jx.Encoder) { encodeDecimal(e, o.TotalDiscount) })
	})

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(e.Bytes())
}

// encodeDecimal writes d as a raw JSON number, keeping the exact decimal
// representation instead of a quoted string or a float64 round trip.
func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

// writeDomainError maps domain failures onto the uniform error envelope.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *order.ValidationError
		invalidErr    *value.InvalidValueError
		unknownErr    *discount.UnknownRuleError
		unavailErr    *lookup.UnavailableError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &invalidErr):
		writeError(w, http.StatusBadRequest, invalidErr.Error())
	case errors.As(err, &unknownErr):
		writeError(w, http.StatusNotFound, unknownErr.Error())
	case errors.As(err, &unavailErr):
		code := unavailErr.Code
		if code < http.StatusBadRequest || code > 599 {
			code = http.StatusInternalServerError
		}
		writeError(w, code, unavailErr.Message)
	default:
		zctx.From(r.Context()).Error("Discount request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeError writes the {"error":{"code":N,"message":...}} envelope.
func writeError(w http.ResponseWriter, code int, message string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("code", func(e *jx.Encoder) { e.Int(code) })
				e.Field("message", func(e *jx.Encoder) { e.Str(message) })
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
