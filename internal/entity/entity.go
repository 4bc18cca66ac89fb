// Package entity serves a simulated external customer/product entity service
// from embedded fixture data. It mirrors the upstream contract the lookup
// clients consume: GET /customer/{id} and GET /product/{id}, with a JSON
// error envelope for unknown identifiers.
package entity

import (
	"embed"
	"fmt"
	"net/http"
	"path"

	"github.com/go-faster/jx"
)

//go:embed fixtures/customer/*.json fixtures/product/*.json
var fixtures embed.FS

// Handler serves the embedded entity fixtures.
type Handler struct{}

// NewHandler creates a fixture-backed entity Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Register mounts the entity routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /customer/{id}", h.serve("customer", "Customer"))
	mux.HandleFunc("GET /product/{id}", h.serve("product", "Product"))
}

func (h *Handler) serve(kind, label string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		data, err := fixtures.ReadFile(path.Join("fixtures", kind, id+".json"))
		if err != nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("%s with ID %s does not exist", label, id))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}
}

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
