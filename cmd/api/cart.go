package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"souk/internal/domain/carts"
	"souk/internal/domain/catalog"

	"github.com/go-chi/chi/v5"
)

// GetCart godoc
//
//	@Summary		Get the current cart
//	@Description	Retrieves the caller's active cart with live re-resolved prices
//	@Tags			Store-Cart
//	@Accept			json
//	@Produce		json
//	@Param			X-Guest-Token	header		string			false	"Guest cart token"
//	@Success		200				{object}	carts.CartView	"Cart retrieved successfully"
//	@Failure		500				{object}	error			"Internal Server Error"
//	@Router			/store/cart [get]
func (app *application) getCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	owner := getOwnerFromContext(r)

	view, err := app.carts.GetView(ctx, owner)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if view == nil {
		// First contact: open an empty cart for this owner.
		if _, err := app.carts.EnsureActive(ctx, owner); err != nil {
			app.internalServerError(w, r, err)
			return
		}

		view, err = app.carts.GetView(ctx, owner)
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
	}

	app.jsonResponse(w, http.StatusOK, view)
}

// AddCartItem godoc
//
//	@Summary		Add an item to the cart
//	@Description	Adds a product (optionally a specific variant) to the caller's cart. Adding the same pair again sums the quantity.
//	@Tags			Store-Cart
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	map[string]string	"Item added"
//	@Failure		400	{object}	error				"Bad Request"
//	@Failure		404	{object}	error				"Product not found"
//	@Router			/store/cart/items [post]
func (app *application) addCartItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	owner := getOwnerFromContext(r)

	var in struct {
		ProductID int64  `json:"product_id"`
		VariantID *int64 `json:"variant_id"`
		Qty       int    `json:"qty"`
	}
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if in.ProductID <= 0 || in.Qty <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("product_id and qty are required"))
		return
	}

	// Resolve the price server-side; the stored display price is what the
	// customer saw at add time.
	displayPrice, err := app.resolveDisplayPrice(ctx, in.ProductID, in.VariantID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		// Catalog unreachable. Accept the add anyway; cart views and
		// checkout re-resolve prices, so a zero display price self-heals.
		app.logger.Warnw("display price lookup degraded", "product_id", in.ProductID, "error", err)
		displayPrice = 0
	}

	if err := app.carts.AddItem(ctx, owner, in.ProductID, in.VariantID, in.Qty, displayPrice); err != nil {
		if errors.Is(err, carts.ErrInvalidQuantity) {
			app.badRequestResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusCreated, map[string]string{"message": "item added"})
}

func (app *application) resolveDisplayPrice(ctx context.Context, productID int64, variantID *int64) (int64, error) {
	product, err := app.store.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}

	var variant *catalog.Variant
	if variantID != nil {
		variant, err = app.store.Catalog.GetVariantOfProduct(ctx, product.ID, *variantID)
		if err != nil {
			return 0, err
		}
	}

	return catalog.ResolvePrice(product, variant)
}

// UpdateCartItemQty godoc
//
//	@Summary		Set the quantity of a cart line
//	@Description	Sets the absolute quantity of a cart item. A quantity of zero removes the line.
//	@Tags			Store-Cart
//	@Accept			json
//	@Produce		json
//	@Param			itemID	path		int					true	"Cart item ID"
//	@Success		200		{object}	map[string]string	"Quantity updated"
//	@Failure		400		{object}	error				"Bad Request"
//	@Failure		404		{object}	error				"Item not found"
//	@Router			/store/cart/items/{itemID} [patch]
func (app *application) updateCartItemQtyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	owner := getOwnerFromContext(r)

	itemStr := chi.URLParam(r, "itemID")
	itemID, err := strconv.ParseInt(itemStr, 10, 64)
	if err != nil || itemID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid itemID"))
		return
	}

	var in struct {
		Qty int `json:"qty"`
	}
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.carts.UpdateItemQty(ctx, owner, itemID, in.Qty); err != nil {
		switch {
		case errors.Is(err, carts.ErrItemNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, carts.ErrInvalidQuantity):
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "quantity updated"})
}

// RemoveCartItem godoc
//
//	@Summary		Remove a cart line
//	@Description	Removes an item from the cart. Removing an absent item succeeds.
//	@Tags			Store-Cart
//	@Produce		json
//	@Param			itemID	path		int					true	"Cart item ID"
//	@Success		200		{object}	map[string]string	"Item removed"
//	@Router			/store/cart/items/{itemID} [delete]
func (app *application) removeCartItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	owner := getOwnerFromContext(r)

	itemStr := chi.URLParam(r, "itemID")
	itemID, err := strconv.ParseInt(itemStr, 10, 64)
	if err != nil || itemID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid itemID"))
		return
	}

	if err := app.carts.RemoveItem(ctx, owner, itemID); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "item removed"})
}

// ClearCart godoc
//
//	@Summary	Empty the cart
//	@Tags		Store-Cart
//	@Produce	json
//	@Success	200	{object}	map[string]string	"Cart cleared"
//	@Router		/store/cart [delete]
func (app *application) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	owner := getOwnerFromContext(r)

	if err := app.carts.Clear(ctx, owner); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}

// MergeCart godoc
//
//	@Summary		Merge a guest cart into the user's cart
//	@Description	Adopts the guest cart on login. When the user already has items, the user cart wins and the guest cart is discarded.
//	@Tags			Store-Cart
//	@Accept			json
//	@Produce		json
//	@Param			X-Guest-Token	header		string				true	"Guest cart token to merge"
//	@Success		200				{object}	map[string]string	"Carts merged"
//	@Failure		400				{object}	error				"Bad Request"
//	@Failure		401				{object}	error				"Unauthorized"
//	@Security		ApiKeyAuth
//	@Router			/store/cart/merge [post]
func (app *application) mergeCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := getUserIDFromContext(r)

	guestToken := r.Header.Get(guestTokenHeader)
	if guestToken == "" {
		app.badRequestResponse(w, r, fmt.Errorf("guest token header is required"))
		return
	}

	if err := app.store.MergeCarts(ctx, guestToken, userID); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "carts merged"})
}
