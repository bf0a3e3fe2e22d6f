package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lamnguyendev/keymart-backend/api/middleware"
	"github.com/lamnguyendev/keymart-backend/api/responses"
	"github.com/lamnguyendev/keymart-backend/api/validators"
	"github.com/lamnguyendev/keymart-backend/internal/cart"
	"github.com/lamnguyendev/keymart-backend/pkg/errors"
)

type CartController struct {
	carts *cart.Service
}

func NewCartController(carts *cart.Service) *CartController {
	return &CartController{carts: carts}
}

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

func (c *CartController) Add(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	var req addCartItemRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(w, r, err)
		return
	}

	item, err := c.carts.Add(r.Context(), identity.UserID, req.ProductID, req.Quantity)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}
	responses.WriteSuccess(w, http.StatusCreated, item)
}

func (c *CartController) Remove(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		responses.WriteError(w, r, errors.New(errors.CodeValidation, "invalid product id"))
		return
	}

	quantity := 0
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		quantity, err = strconv.Atoi(raw)
		if err != nil || quantity < 0 {
			responses.WriteError(w, r, errors.New(errors.CodeValidation, "invalid quantity"))
			return
		}
	}

	if err := c.carts.Remove(r.Context(), identity.UserID, productID, quantity); err != nil {
		responses.WriteError(w, r, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, map[string]bool{"removed": true})
}

func (c *CartController) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	items, err := c.carts.List(r.Context(), identity.UserID)
	if err != nil {
		responses.WriteError(w, r, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, items)
}
