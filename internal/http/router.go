package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func NewRouter(handler *Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(Timeout)
	r.Use(CORS)

	r.Get("/healthz", handler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/items", handler.ListItems)
		r.Post("/items", handler.CreateItem)
		r.Get("/items/{id}", handler.GetItem)
		r.Patch("/items/{id}", handler.PatchItem)
		r.Delete("/items/{id}", handler.DeleteItem)
		r.Get("/items/{id}/platforms", handler.ListItemPlatforms)
		r.Put("/items/{id}/platforms", handler.ReplaceItemPlatforms)

		r.Get("/items/{id}/variants", handler.ListVariants)
		r.Post("/items/{id}/variants", handler.CreateVariant)
		r.Get("/variants/{id}", handler.GetVariant)
		r.Patch("/variants/{id}", handler.PatchVariant)
		r.Delete("/variants/{id}", handler.DeleteVariant)
		r.Put("/variants/{id}/platforms", handler.ReplaceVariantPlatforms)

		r.Get("/items/{id}/sales", handler.ListItemSales)
		r.Get("/sales", handler.ListSales)
		r.Post("/sales", handler.CreateSale)
		r.Patch("/sales/{id}", handler.UpdateSale)
		r.Delete("/sales/{id}", handler.DeleteSale)

		r.Get("/statistics/summary", handler.StatisticsSummary)
		r.Get("/statistics/counters", handler.ListSalesCounters)

		r.Get("/categories", handler.ListCategories)
		r.Post("/categories", handler.CreateCategory)
		r.Get("/platforms", handler.ListPlatforms)
		r.Post("/platforms", handler.CreatePlatform)

		r.Get("/reports/sales.xlsx", handler.ExportSalesReport)
	})

	return r
}
