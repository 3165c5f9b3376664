package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/example/ec-cart/internal/api/middleware"
	"github.com/example/ec-cart/internal/auth"
	"github.com/example/ec-cart/internal/domain/user"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AuthHandlers handles registration, login and the profile of the caller
type AuthHandlers struct {
	userService *user.Service
	jwtService  *auth.JWTService
	logger      *zap.Logger
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(userService *user.Service, jwtService *auth.JWTService, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		userService: userService,
		jwtService:  jwtService,
		logger:      logger,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AddressRequest struct {
	Address string `json:"address"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Message   string       `json:"message,omitempty"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	WalletMoney decimal.Decimal `json:"walletMoney"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Address:     u.Address,
		WalletMoney: u.WalletMoney,
		CreatedAt:   u.CreatedAt,
	}
}

// Register handles user registration
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}

	newUser, err := h.userService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			respondJSONError(w, "Email already registered", http.StatusConflict)
		case errors.Is(err, user.ErrInvalidEmail):
			respondJSONError(w, "Email is invalid", http.StatusBadRequest)
		case errors.Is(err, user.ErrInvalidName):
			respondJSONError(w, "Name is required", http.StatusBadRequest)
		case errors.Is(err, auth.ErrPasswordTooShort):
			respondJSONError(w, "Password must be at least 8 characters", http.StatusBadRequest)
		case errors.Is(err, auth.ErrPasswordTooLong):
			respondJSONError(w, "Password must be at most 72 bytes", http.StatusBadRequest)
		default:
			respondError(w, r, h.logger, err)
		}
		return
	}

	h.respondWithToken(w, r, newUser, http.StatusCreated, "Registration successful")
}

// Login handles user login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}

	u, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			respondJSONError(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}
		respondError(w, r, h.logger, err)
		return
	}

	h.respondWithToken(w, r, u, http.StatusOK, "Login successful")
}

// Me returns the current authenticated user's information
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.userService.GetByEmail(r.Context(), middleware.GetEmail(r.Context()))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			respondJSONError(w, "User not found", http.StatusNotFound)
			return
		}
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(u))
}

// SetAddress replaces the shipping address used at checkout
func (h *AuthHandlers) SetAddress(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}

	u, err := h.userService.SetAddress(r.Context(), middleware.GetEmail(r.Context()), req.Address)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidAddress):
			respondJSONError(w, "Address is required", http.StatusBadRequest)
		case errors.Is(err, user.ErrUserNotFound):
			respondJSONError(w, "User not found", http.StatusNotFound)
		default:
			respondError(w, r, h.logger, err)
		}
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *AuthHandlers) respondWithToken(w http.ResponseWriter, r *http.Request, u *user.User, status int, message string) {
	token, expiresAt, err := h.jwtService.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	respondJSON(w, status, AuthResponse{
		User:      toUserResponse(u),
		Token:     token,
		ExpiresAt: expiresAt,
		Message:   message,
	})
}
