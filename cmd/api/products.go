package main

import (
	"context"
	"net/http"
	"time"

	"souk/internal/domain/catalog"
	"souk/internal/params"

	"github.com/go-chi/chi/v5"
)

// ListProducts godoc
//
//	@Summary		List products
//	@Description	Returns active products as lightweight cards with pagination
//	@Tags			Store-Products
//	@Produce		json
//	@Param			page	query		int	false	"Page number"
//	@Param			limit	query		int	false	"Items per page"
//	@Success		200		{object}	map[string]any	"Products retrieved"
//	@Failure		500		{object}	error			"Internal Server Error"
//	@Router			/store/products [get]
func (app *application) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p := params.ParsePagination(r.URL.Query())

	cards, total, err := app.store.Catalog.ListProductCards(ctx, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"products":   cards,
		"pagination": p,
	})
}

// GetProduct godoc
//
//	@Summary		Get a product by slug
//	@Description	Returns the full product detail including variants
//	@Tags			Store-Products
//	@Produce		json
//	@Param			slug	path		string					true	"Product slug"
//	@Success		200		{object}	catalog.ProductDetail	"Product retrieved"
//	@Failure		404		{object}	error					"Not Found"
//	@Router			/store/products/{slug} [get]
func (app *application) getProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	slug := chi.URLParam(r, "slug")

	detail, err := app.store.Catalog.GetProductDetailBySlug(ctx, slug)
	if err != nil {
		if err == catalog.ErrProductNotFound {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, detail)
}
