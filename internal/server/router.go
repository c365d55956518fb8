// internal/server/router.go
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the trigger endpoints, the balance probe and the
// metrics exposition.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Trigger handlers respond immediately, the timeout only guards
	// against stuck request bodies and slow on-chain key resolution.
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/sell", h.HandleSell)
	r.Post("/sell-simple", h.HandleSellSimple)
	r.Get("/balance", h.HandleBalance)
	r.Get("/healthz", h.HandleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
