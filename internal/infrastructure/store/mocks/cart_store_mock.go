package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/user"
)

// MockCartStore is an in-memory cart.Store and cart.CheckoutCommitter for
// tests. Checkout commits debit wallets held by the linked MockAccounts.
type MockCartStore struct {
	mu       sync.Mutex
	carts    map[string]*cart.Cart // email -> cart
	accounts *MockAccounts

	// For tracking calls in tests
	FindCalls   []string
	CreateCalls []string
	SaveCalls   []*cart.Cart
	CommitCalls []cart.Checkout

	FindErr   error
	CreateErr error
	SaveErr   error
	CommitErr error
}

// NewMockCartStore creates a store; accounts may be nil when no test
// commits a checkout.
func NewMockCartStore(accounts *MockAccounts) *MockCartStore {
	return &MockCartStore{
		carts:    make(map[string]*cart.Cart),
		accounts: accounts,
	}
}

func (m *MockCartStore) FindByEmail(ctx context.Context, email string) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindCalls = append(m.FindCalls, email)
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	c, ok := m.carts[email]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (m *MockCartStore) Create(ctx context.Context, email string) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls = append(m.CreateCalls, email)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if _, ok := m.carts[email]; ok {
		return nil, cart.ErrConflict
	}
	c := cart.New(email)
	m.carts[email] = c
	return c.Clone(), nil
}

func (m *MockCartStore) Save(ctx context.Context, c *cart.Cart) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls = append(m.SaveCalls, c.Clone())
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	if _, ok := m.carts[c.Email]; !ok {
		return nil, cart.ErrCartNotFound
	}
	stored := c.Clone()
	stored.UpdatedAt = time.Now()
	m.carts[c.Email] = stored
	return stored.Clone(), nil
}

func (m *MockCartStore) CommitCheckout(ctx context.Context, co cart.Checkout) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CommitCalls = append(m.CommitCalls, co)
	if m.CommitErr != nil {
		return m.CommitErr
	}

	c, ok := m.carts[co.Email]
	if !ok {
		return cart.ErrCartNotFound
	}
	u, ok := m.accounts.get(co.Email)
	if !ok {
		return user.ErrUserNotFound
	}
	if u.WalletMoney.LessThan(co.Total) {
		return cart.ErrInsufficientFunds
	}

	u.WalletMoney = u.WalletMoney.Sub(co.Total)
	m.accounts.put(u)
	c.Items = []cart.CartItem{}
	return nil
}

// SetCart stores a cart directly for testing.
func (m *MockCartStore) SetCart(c *cart.Cart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[c.Email] = c.Clone()
}

// GetCart reads a cart without recording the call.
func (m *MockCartStore) GetCart(email string) (*cart.Cart, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[email]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}
