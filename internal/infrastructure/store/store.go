package store

import (
	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/domain/user"
)

// CartStore is a cart.Store that can also commit checkouts.
type CartStore interface {
	cart.Store
	cart.CheckoutCommitter
}

// Stores groups the repositories of one backend. Carts must be able to
// debit the wallets held by Users inside a single transaction.
type Stores struct {
	Carts    CartStore
	Users    user.Accounts
	Products product.Repository
}
