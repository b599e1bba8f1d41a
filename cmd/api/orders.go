package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"souk/internal/domain/orders"
	"souk/internal/params"

	"github.com/go-chi/chi/v5"
)

// ListMyOrders godoc
//
//	@Summary	List the caller's orders
//	@Tags		Store-Orders
//	@Produce	json
//	@Param		status	query		string	false	"Filter by status"
//	@Param		page	query		int		false	"Page number"
//	@Param		limit	query		int		false	"Items per page"
//	@Success	200		{object}	map[string]any	"Orders retrieved"
//	@Security	ApiKeyAuth
//	@Router		/store/orders [get]
func (app *application) listMyOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := getUserIDFromContext(r)
	p := params.ParsePagination(r.URL.Query())
	status := r.URL.Query().Get("status")

	list, total, err := app.store.Orders.ListByUser(ctx, userID, status, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"orders":     list,
		"pagination": p,
	})
}

// GetMyOrder godoc
//
//	@Summary		Get one of the caller's orders
//	@Description	Returns the order with its frozen line items. Other users' orders come back 404.
//	@Tags			Store-Orders
//	@Produce		json
//	@Param			orderID	path		int					true	"Order ID"
//	@Success		200		{object}	orders.OrderDetail	"Order retrieved"
//	@Failure		404		{object}	error				"Not Found"
//	@Security		ApiKeyAuth
//	@Router			/store/orders/{orderID} [get]
func (app *application) getMyOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := getUserIDFromContext(r)

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid orderID"))
		return
	}

	detail, err := app.store.Orders.GetDetailForUser(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, detail)
}

// AdminListOrders godoc
//
//	@Summary	List all orders
//	@Tags		Admin-Orders
//	@Produce	json
//	@Param		status	query		string	false	"Filter by status"
//	@Param		page	query		int		false	"Page number"
//	@Param		limit	query		int		false	"Items per page"
//	@Success	200		{object}	map[string]any	"Orders retrieved"
//	@Security	ApiKeyAuth
//	@Router		/admin/orders [get]
func (app *application) adminListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p := params.ParsePagination(r.URL.Query())
	status := r.URL.Query().Get("status")

	list, total, err := app.store.Orders.ListAll(ctx, status, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"orders":     list,
		"pagination": p,
	})
}

// AdminGetOrder godoc
//
//	@Summary	Get any order with its items
//	@Tags		Admin-Orders
//	@Produce	json
//	@Param		orderID	path		int					true	"Order ID"
//	@Success	200		{object}	orders.OrderDetail	"Order retrieved"
//	@Failure	404		{object}	error				"Not Found"
//	@Security	ApiKeyAuth
//	@Router		/admin/orders/{orderID} [get]
func (app *application) adminGetOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid orderID"))
		return
	}

	detail, err := app.store.Orders.GetDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, detail)
}

// AdminUpdateOrderStatus godoc
//
//	@Summary		Update an order's status
//	@Description	Moves an order along its lifecycle. Cancelling accepts an optional reason.
//	@Tags			Admin-Orders
//	@Accept			json
//	@Produce		json
//	@Param			orderID	path		int					true	"Order ID"
//	@Success		200		{object}	map[string]string	"Status updated"
//	@Failure		400		{object}	error				"Bad Request"
//	@Failure		404		{object}	error				"Not Found"
//	@Security		ApiKeyAuth
//	@Router			/admin/orders/{orderID}/status [patch]
func (app *application) adminUpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid orderID"))
		return
	}

	var in struct {
		Status          string  `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
		CancelledReason *string `json:"cancelled_reason" validate:"omitempty,max=255"`
	}
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.store.Orders.UpdateStatus(ctx, orderID, in.Status, orders.UpdateStatusOpts{
		CancelledReason: in.CancelledReason,
	})
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "status updated"})
}

// AdminListCarts godoc
//
//	@Summary	List carts
//	@Tags		Admin-Carts
//	@Produce	json
//	@Param		status			query		string	false	"Filter by cart status"
//	@Param		include_expired	query		bool	false	"Include expired carts"
//	@Param		page			query		int		false	"Page number"
//	@Param		limit			query		int		false	"Items per page"
//	@Success	200				{object}	map[string]any	"Carts retrieved"
//	@Security	ApiKeyAuth
//	@Router		/admin/carts [get]
func (app *application) adminListCartsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p := params.ParsePagination(r.URL.Query())
	status := r.URL.Query().Get("status")
	includeExpired := r.URL.Query().Get("include_expired") == "true"

	list, total, err := app.store.Carts.List(ctx, status, includeExpired, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"carts":      list,
		"pagination": p,
	})
}

// AdminSweepCarts godoc
//
//	@Summary		Mark expired carts as abandoned now
//	@Description	Runs the abandoned-cart sweep immediately instead of waiting for the hourly pass.
//	@Tags			Admin-Carts
//	@Produce		json
//	@Success		200	{object}	map[string]int64	"Carts swept"
//	@Security		ApiKeyAuth
//	@Router			/admin/carts/sweep [post]
func (app *application) adminSweepCartsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	n, err := app.store.Carts.MarkExpiredAsAbandoned(ctx)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]int64{"abandoned": n})
}
