package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/bakery-storefront/internal/storefront/infra/httpx/middlewares"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachTracingMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/catalog", func(r chi.Router) {
		r.Get("/", handler.ListCatalog)
		r.Get("/search", handler.SearchCatalog)
		r.Get("/{id}", handler.GetCake)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/catalog/sync", handler.SyncCatalog)
		r.Post("/catalog/invalidate", handler.InvalidateCatalog)
		r.Post("/products/{id}/events", handler.ProductEvent)
		r.Get("/sync/{id}", handler.GetSyncRun)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(middlewares.RequireSession)
		r.Get("/", handler.GetCart)
		r.Delete("/", handler.ClearCart)
		r.Post("/items", handler.AddItem)
		r.Patch("/items/{lineID}", handler.UpdateQuantity)
		r.Delete("/items/{lineID}", handler.RemoveItem)
		r.Post("/loaves", handler.AddLoaf)
		r.Post("/promotion", handler.ApplyPromotion)
		r.Delete("/promotion", handler.RemovePromotion)
	})
	return r
}
