package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"souk/internal/domain/coupons"
	"souk/internal/params"

	"github.com/go-chi/chi/v5"
)

// PreviewCoupon godoc
//
//	@Summary		Preview a coupon against a subtotal
//	@Description	Evaluates a coupon code without consuming a usage slot. The checkout re-evaluates authoritatively; this is for showing the discount in the cart.
//	@Tags			Store-Coupons
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	coupons.Result	"Evaluation result"
//	@Failure		400	{object}	error			"Bad Request"
//	@Router			/store/coupons/preview [post]
func (app *application) previewCouponHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var in struct {
		Code          string `json:"code" validate:"required,couponcode"`
		SubtotalCents int64  `json:"subtotal_cents" validate:"gte=0"`
	}
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	c, err := app.store.Coupons.FindByCode(ctx, coupons.Normalize(in.Code))
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, coupons.Evaluate(c, in.SubtotalCents, time.Now()))
}

// CreateCoupon godoc
//
//	@Summary		Create a coupon
//	@Description	Creates a discount coupon. Codes are stored uppercase and must be unique.
//	@Tags			Admin-Coupons
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	coupons.Coupon	"Coupon created"
//	@Failure		400	{object}	error			"Bad Request"
//	@Failure		409	{object}	error			"Duplicate code"
//	@Security		ApiKeyAuth
//	@Router			/admin/coupons [post]
func (app *application) createCouponHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var in struct {
		Code          string     `json:"code" validate:"required,couponcode"`
		Type          string     `json:"type" validate:"required,oneof=percentage fixed"`
		Value         int64      `json:"value" validate:"required,gt=0"`
		MinOrderCents *int64     `json:"min_order_cents" validate:"omitempty,gte=0"`
		ExpiresAt     *time.Time `json:"expires_at"`
		UsageLimit    *int       `json:"usage_limit" validate:"omitempty,gt=0"`
	}
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if in.Type == string(coupons.DiscountPercentage) && in.Value > 100 {
		app.badRequestResponse(w, r, fmt.Errorf("percentage value must be between 1 and 100"))
		return
	}

	coupon := &coupons.Coupon{
		Code:          coupons.Normalize(in.Code),
		Type:          coupons.DiscountType(in.Type),
		Value:         in.Value,
		MinOrderCents: in.MinOrderCents,
		ExpiresAt:     in.ExpiresAt,
		IsActive:      true,
		UsageLimit:    in.UsageLimit,
	}

	created, err := app.store.Coupons.Create(ctx, coupon)
	if err != nil {
		if errors.Is(err, coupons.ErrDuplicateCode) {
			writeJSONError(w, http.StatusConflict, "coupon code already exists")
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusCreated, created)
}

// ListCoupons godoc
//
//	@Summary	List coupons
//	@Tags		Admin-Coupons
//	@Produce	json
//	@Param		page	query		int	false	"Page number"
//	@Param		limit	query		int	false	"Items per page"
//	@Success	200		{object}	map[string]any	"Coupons retrieved"
//	@Security	ApiKeyAuth
//	@Router		/admin/coupons [get]
func (app *application) listCouponsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p := params.ParsePagination(r.URL.Query())

	list, total, err := app.store.Coupons.List(ctx, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"coupons":    list,
		"pagination": p,
	})
}

// SetCouponActive godoc
//
//	@Summary		Activate or deactivate a coupon
//	@Description	Deactivated coupons stop applying immediately; existing orders are untouched.
//	@Tags			Admin-Coupons
//	@Accept			json
//	@Produce		json
//	@Param			couponID	path		int					true	"Coupon ID"
//	@Success		200			{object}	map[string]string	"Coupon updated"
//	@Failure		400			{object}	error				"Bad Request"
//	@Security		ApiKeyAuth
//	@Router			/admin/coupons/{couponID}/active [patch]
func (app *application) setCouponActiveHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	idStr := chi.URLParam(r, "couponID")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid couponID"))
		return
	}

	var in struct {
		Active *bool `json:"active" validate:"required"`
	}
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if in.Active == nil {
		app.badRequestResponse(w, r, fmt.Errorf("active is required"))
		return
	}

	if err := app.store.Coupons.SetActive(ctx, id, *in.Active); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "coupon updated"})
}
