// Package handler exposes the discount engine over HTTP.
package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/lubart/discount-service/internal/domain/discount"
	"github.com/lubart/discount-service/internal/domain/order"
)

// maxBodySize bounds the request body read per discount request.
const maxBodySize = 1 << 20

// Handler maps discount HTTP requests onto the engine and serializes the
// results back to the wire format.
type Handler struct {
	engine *discount.Engine
}

// NewHandler constructs a Handler around the given engine.
func NewHandler(engine *discount.Engine) *Handler {
	return &Handler{engine: engine}
}

// Register mounts the discount routes and the JSON 404 fallback on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /discount/{rule}", h.ApplyDiscount)
	mux.HandleFunc("/", h.notFound)
}

// ApplyDiscount handles POST /discount/{rule}: it builds the order from the
// JSON body, applies the named rule, and writes the discounted order back.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	rule := r.PathValue("rule")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	source, err := decodeBody(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	o, err := order.BuildOrder(source)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	if err := h.engine.Apply(r.Context(), rule, o); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	zctx.From(r.Context()).Info("Discount applied",
		zap.String("rule", rule),
		zap.Int("order_id", o.ID.Int()),
		zap.String("total_discount", o.TotalDiscount.String()),
	)
	writeOrder(w, o)
}

func (h *Handler) notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Endpoint not found")
}
