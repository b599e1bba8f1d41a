package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"souk/internal/domain/checkout"
)

// Checkout godoc
//
//	@Summary		Place an order
//	@Description	Recomputes the submitted cart snapshot against the live catalog, applies an optional coupon, and creates the order atomically. Client-side prices are ignored.
//	@Tags			Store-Checkout
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		checkout.Request	true	"Cart snapshot, customer details and optional coupon code"
//	@Success		201		{object}	checkout.Result		"Order placed"
//	@Failure		400		{object}	error				"Bad Request"
//	@Failure		422		{object}	error				"No valid items left"
//	@Failure		500		{object}	error				"Internal Server Error"
//	@Router			/store/checkout [post]
func (app *application) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	owner := getOwnerFromContext(r)

	var req checkout.Request
	if err := readJSON(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	result, err := app.checkout.Checkout(ctx, owner, req)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, checkout.ErrNoValidItems):
			app.unprocessableEntityResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.jsonResponse(w, http.StatusCreated, result)
}
