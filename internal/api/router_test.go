package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/ec-cart/internal/auth"
	"github.com/example/ec-cart/internal/command"
	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/domain/user"
	"github.com/example/ec-cart/internal/infrastructure/store/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	auth.BcryptCost = bcrypt.MinCost
}

type testServer struct {
	handler  http.Handler
	jwt      *auth.JWTService
	accounts *mocks.MockAccounts
	carts    *mocks.MockCartStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	accounts := mocks.NewMockAccounts()
	carts := mocks.NewMockCartStore(accounts)
	catalog := mocks.NewMockCatalog(
		product.Product{ID: "p1", Name: "Laptop", Category: "Electronics", Cost: decimal.NewFromInt(100)},
		product.Product{ID: "p2", Name: "Mouse", Category: "Electronics", Cost: decimal.NewFromInt(50)},
	)
	logger := zap.NewNop()
	jwtService := auth.NewJWTService("test-secret-key-that-is-32-chars!", 15*time.Minute)

	userSvc := user.NewService(accounts, decimal.NewFromInt(500))
	cartSvc := cart.NewService(carts, catalog, carts)
	cmdHandler := command.NewHandler(userSvc, cartSvc, nil, logger)

	router := NewRouter(RouterConfig{
		Handlers:     NewHandlers(cmdHandler, product.NewService(catalog), logger),
		AuthHandlers: NewAuthHandlers(userSvc, jwtService, logger),
		JWTService:   jwtService,
		Logger:       logger,
	})
	return &testServer{handler: router, jwt: jwtService, accounts: accounts, carts: carts}
}

// shopper stores a user with a usable address and returns its token.
func (s *testServer) shopper(t *testing.T, wallet int64) string {
	t.Helper()
	s.accounts.SetUser(&user.User{
		ID:          "user-1",
		Email:       "shopper@example.com",
		Name:        "Shopper",
		Address:     "221B Baker Street",
		WalletMoney: decimal.NewFromInt(wallet),
	})
	token, _, err := s.jwt.GenerateAccessToken("user-1", "shopper@example.com")
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cart.Cart {
	t.Helper()
	var c cart.Cart
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&c))
	return c
}

// ============================================
// Cart endpoints
// ============================================

func TestCart_RequiresAuth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/v1/cart", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCart_GetWithoutCart(t *testing.T) {
	s := newTestServer(t)
	token := s.shopper(t, 500)

	rec := s.do(t, http.MethodGet, "/v1/cart", token, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrorResponse{Code: 404, Message: cart.MsgNoCart}, decodeError(t, rec))
}

func TestCart_AddUpdateDelete(t *testing.T) {
	s := newTestServer(t)
	token := s.shopper(t, 500)

	rec := s.do(t, http.MethodPost, "/v1/cart", token, map[string]any{"productId": "p1", "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := decodeCart(t, rec)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, cart.DefaultPaymentOption, c.PaymentOption)

	rec = s.do(t, http.MethodPost, "/v1/cart", token, map[string]any{"productId": "p1", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, cart.MsgProductAlreadyAdded, decodeError(t, rec).Message)

	rec = s.do(t, http.MethodPut, "/v1/cart", token, map[string]any{"productId": "p1", "quantity": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decodeCart(t, rec).Items[0].Quantity)

	rec = s.do(t, http.MethodDelete, "/v1/cart/items/p1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)

	rec = s.do(t, http.MethodDelete, "/v1/cart/items/p1", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, cart.MsgProductNotInCartDel, decodeError(t, rec).Message)
}

func TestCart_PutZeroRemoves(t *testing.T) {
	s := newTestServer(t)
	token := s.shopper(t, 500)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/cart", token, map[string]any{"productId": "p1", "quantity": 1}).Code)

	rec := s.do(t, http.MethodPut, "/v1/cart", token, map[string]any{"productId": "p1", "quantity": 0})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)
}

func TestCart_RequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		body    any
		message string
	}{
		{"malformed json", http.MethodPost, "{", msgInvalidBody},
		{"missing product id", http.MethodPost, map[string]any{"quantity": 1}, msgProductIDRequired},
		{"missing quantity", http.MethodPost, map[string]any{"productId": "p1"}, msgQuantityRequired},
		{"fractional quantity", http.MethodPost, `{"productId":"p1","quantity":1.5}`, msgInvalidBody},
		{"zero quantity on add", http.MethodPost, map[string]any{"productId": "p1", "quantity": 0}, cart.MsgInvalidQuantity},
		{"negative quantity on update", http.MethodPut, map[string]any{"productId": "p1", "quantity": -1}, msgNegativeQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			token := s.shopper(t, 500)

			rec := s.do(t, tt.method, "/v1/cart", token, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decodeError(t, rec).Message)
			assert.Empty(t, s.carts.CreateCalls)
		})
	}
}

func TestCart_Checkout(t *testing.T) {
	s := newTestServer(t)
	token := s.shopper(t, 300)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/cart", token, map[string]any{"productId": "p1", "quantity": 2}).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/cart", token, map[string]any{"productId": "p2", "quantity": 1}).Code)

	rec := s.do(t, http.MethodPut, "/v1/cart/checkout", token, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var receipt cart.Receipt
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&receipt))
	assert.True(t, receipt.Total.Equal(decimal.NewFromInt(250)))
	assert.True(t, receipt.Balance.Equal(decimal.NewFromInt(50)))

	rec = s.do(t, http.MethodPut, "/v1/cart/checkout", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, cart.MsgCartEmpty, decodeError(t, rec).Message)
}

func TestCart_InternalErrorHidesCause(t *testing.T) {
	s := newTestServer(t)
	token := s.shopper(t, 300)
	s.carts.FindErr = errors.New("pq: connection refused")

	rec := s.do(t, http.MethodGet, "/v1/cart", token, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrorResponse{Code: 500, Message: "Internal Server Error"}, decodeError(t, rec))
}

// ============================================
// Catalog endpoints
// ============================================

func TestProducts(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/v1/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var products []product.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&products))
	assert.Len(t, products, 2)

	rec = s.do(t, http.MethodGet, "/v1/products/p2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p product.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Equal(t, "Mouse", p.Name)

	rec = s.do(t, http.MethodGet, "/v1/products/p9", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================
// Auth and profile endpoints
// ============================================

func TestAuth_RegisterLoginAndAddress(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", RegisterRequest{Email: "new@example.com", Password: "password123", Name: "New"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var registered AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&registered))
	assert.Equal(t, user.DefaultAddress, registered.User.Address)
	assert.True(t, registered.User.WalletMoney.Equal(decimal.NewFromInt(500)))
	assert.NotEmpty(t, registered.Token)

	rec = s.do(t, http.MethodPost, "/v1/auth/register", "", RegisterRequest{Email: "new@example.com", Password: "password123", Name: "Again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", LoginRequest{Email: "new@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", LoginRequest{Email: "new@example.com", Password: "password123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&login))

	rec = s.do(t, http.MethodPut, "/v1/users/me/address", login.Token, AddressRequest{Address: user.DefaultAddress})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/v1/users/me/address", login.Token, AddressRequest{Address: "10 Downing Street"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/users/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me UserResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	assert.Equal(t, "10 Downing Street", me.Address)
}

func TestAuth_RegisterValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", RegisterRequest{Email: "bad", Password: "password123", Name: "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/register", "", RegisterRequest{Email: "ok@example.com", Password: "short", Name: "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password must be at least 8 characters", decodeError(t, rec).Message)
}
