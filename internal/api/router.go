package api

import (
	"net/http"

	"github.com/example/ec-cart/internal/api/middleware"
	"github.com/example/ec-cart/internal/auth"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Handlers     *Handlers
	AuthHandlers *AuthHandlers
	JWTService   *auth.JWTService
	Logger       *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	requireAuth := middleware.AuthMiddleware(cfg.JWTService)
	protected := func(fn http.HandlerFunc) http.Handler {
		return requireAuth(fn)
	}

	// Auth
	mux.HandleFunc("POST /v1/auth/register", cfg.AuthHandlers.Register)
	mux.HandleFunc("POST /v1/auth/login", cfg.AuthHandlers.Login)

	// Users
	mux.Handle("GET /v1/users/me", protected(cfg.AuthHandlers.Me))
	mux.Handle("PUT /v1/users/me/address", protected(cfg.AuthHandlers.SetAddress))

	// Products
	mux.HandleFunc("GET /v1/products", cfg.Handlers.GetProducts)
	mux.HandleFunc("GET /v1/products/{id}", cfg.Handlers.GetProduct)

	// Cart
	mux.Handle("GET /v1/cart", protected(cfg.Handlers.GetCart))
	mux.Handle("POST /v1/cart", protected(cfg.Handlers.AddToCart))
	mux.Handle("PUT /v1/cart", protected(cfg.Handlers.UpdateCartItem))
	mux.Handle("DELETE /v1/cart/items/{productId}", protected(cfg.Handlers.RemoveFromCart))
	mux.Handle("PUT /v1/cart/checkout", protected(cfg.Handlers.Checkout))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return middleware.RequestLogger(cfg.Logger)(mux)
}
