package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/ec-cart/internal/api/middleware"
	"github.com/example/ec-cart/internal/command"
	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/product"
	"go.uber.org/zap"
)

const (
	msgInvalidBody       = "Invalid request body"
	msgProductIDRequired = "productId is required"
	msgQuantityRequired  = "quantity is required"
	msgNegativeQuantity  = "Quantity must not be negative"
	msgProductNotFound   = "Product not found"
)

type Handlers struct {
	cmdHandler *command.Handler
	productSvc *product.Service
	logger     *zap.Logger
}

func NewHandlers(cmdHandler *command.Handler, productSvc *product.Service, logger *zap.Logger) *Handlers {
	return &Handlers{
		cmdHandler: cmdHandler,
		productSvc: productSvc,
		logger:     logger,
	}
}

// cartItemRequest is the body of POST and PUT /v1/cart. Quantity is a
// pointer so a missing field can be told apart from zero.
type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

func decodeCartItem(r *http.Request) (cartItemRequest, string) {
	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, msgInvalidBody
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		return req, msgProductIDRequired
	}
	if req.Quantity == nil {
		return req, msgQuantityRequired
	}
	return req, ""
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.productSvc.List(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.productSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) || errors.Is(err, product.ErrInvalidID) {
			respondJSONError(w, msgProductNotFound, http.StatusNotFound)
			return
		}
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cmdHandler.GetCart(r.Context(), middleware.GetEmail(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	req, problem := decodeCartItem(r)
	if problem != "" {
		respondJSONError(w, problem, http.StatusBadRequest)
		return
	}
	if *req.Quantity < 1 {
		respondJSONError(w, cart.MsgInvalidQuantity, http.StatusBadRequest)
		return
	}

	c, err := h.cmdHandler.AddToCart(r.Context(), command.AddToCart{
		Email:     middleware.GetEmail(r.Context()),
		ProductID: req.ProductID,
		Quantity:  *req.Quantity,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// UpdateCartItem sets a quantity; zero removes the product.
func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	req, problem := decodeCartItem(r)
	if problem != "" {
		respondJSONError(w, problem, http.StatusBadRequest)
		return
	}
	if *req.Quantity < 0 {
		respondJSONError(w, msgNegativeQuantity, http.StatusBadRequest)
		return
	}

	c, err := h.cmdHandler.UpdateCartItem(r.Context(), command.UpdateCartItem{
		Email:     middleware.GetEmail(r.Context()),
		ProductID: req.ProductID,
		Quantity:  *req.Quantity,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cmdHandler.RemoveFromCart(r.Context(), command.RemoveFromCart{
		Email:     middleware.GetEmail(r.Context()),
		ProductID: r.PathValue("productId"),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.cmdHandler.Checkout(r.Context(), command.Checkout{
		Email: middleware.GetEmail(r.Context()),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}
