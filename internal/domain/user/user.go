package user

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/example/ec-cart/internal/auth"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultAddress marks a user who has not configured a shipping address yet.
const DefaultAddress = "ADDRESS_NOT_SET"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidEmail       = errors.New("email is invalid")
	ErrInvalidName        = errors.New("name is required")
	ErrInvalidAddress     = errors.New("address is required")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}$`)

func isValidEmail(email string) bool {
	return len(email) <= 254 && emailPattern.MatchString(email)
}

// User is the account slice the cart needs: identity, wallet and address.
type User struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	PasswordHash string          `json:"-"`
	Address      string          `json:"address"`
	WalletMoney  decimal.Decimal `json:"walletMoney"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (u *User) HasSetNonDefaultAddress() bool {
	return u.Address != "" && u.Address != DefaultAddress
}

// Accounts stores users keyed by email.
type Accounts interface {
	// FindByEmail returns ErrUserNotFound when no user has the email.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Create returns ErrEmailTaken when the email is already used.
	Create(ctx context.Context, u *User) error
	Save(ctx context.Context, u *User) error
}

type Service struct {
	accounts      Accounts
	defaultWallet decimal.Decimal
}

func NewService(accounts Accounts, defaultWallet decimal.Decimal) *Service {
	return &Service{accounts: accounts, defaultWallet: defaultWallet}
}

// Register creates a new user with the default address and wallet balance.
func (s *Service) Register(ctx context.Context, email, password, name string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Address:      DefaultAddress,
		WalletMoney:  s.defaultWallet,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks the password and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.accounts.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.accounts.FindByEmail(ctx, email)
}

// SetAddress replaces the shipping address of the user.
func (s *Service) SetAddress(ctx context.Context, email, address string) (*User, error) {
	address = strings.TrimSpace(address)
	if address == "" || address == DefaultAddress {
		return nil, ErrInvalidAddress
	}

	u, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	u.Address = address
	u.UpdatedAt = time.Now()
	if err := s.accounts.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
