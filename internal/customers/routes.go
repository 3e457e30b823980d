package customers

import (
	"github.com/go-chi/chi/v5"

	"github.com/depot-erp/depot/internal/access"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(access.AreaCustomers, access.ViewCustomers))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.With(h.guard.Require(access.AreaCustomers, access.AddCustomer)).Post("/", h.Create)
	r.With(h.guard.Require(access.AreaCustomers, access.EditCustomer)).Put("/{id}", h.Update)
	r.With(h.guard.Require(access.AreaCustomers, access.DeleteCustomer)).Delete("/{id}", h.Delete)
}
