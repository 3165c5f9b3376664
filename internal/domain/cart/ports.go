package cart

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrConflict          = errors.New("cart already exists for user")
	ErrInsufficientFunds = errors.New("wallet balance is lower than the checkout total")
)

// Store persists one cart per user email.
type Store interface {
	// FindByEmail returns ErrCartNotFound when the user has no cart.
	FindByEmail(ctx context.Context, email string) (*Cart, error)
	// Create must be atomic per email and return ErrConflict when a cart
	// already exists.
	Create(ctx context.Context, email string) (*Cart, error)
	Save(ctx context.Context, c *Cart) (*Cart, error)
}

// Checkout is the unit of work applied when a cart is paid for.
type Checkout struct {
	CartID string
	Email  string
	Total  decimal.Decimal
}

// CheckoutCommitter debits the wallet and empties the cart in one
// transaction. It returns ErrInsufficientFunds, without changing anything,
// if the stored balance is below the total at commit time.
type CheckoutCommitter interface {
	CommitCheckout(ctx context.Context, co Checkout) error
}
