package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/domain/user"
)

// MockAccounts is an in-memory user.Accounts for testing
type MockAccounts struct {
	mu    sync.Mutex
	users map[string]user.User

	SaveCalls []user.User
	FindErr   error
	CreateErr error
	SaveErr   error
}

func NewMockAccounts() *MockAccounts {
	return &MockAccounts{users: make(map[string]user.User)}
}

func (m *MockAccounts) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	u, ok := m.users[email]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

func (m *MockAccounts) Create(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, ok := m.users[u.Email]; ok {
		return user.ErrEmailTaken
	}
	m.users[u.Email] = *u
	return nil
}

func (m *MockAccounts) Save(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls = append(m.SaveCalls, *u)
	if m.SaveErr != nil {
		return m.SaveErr
	}
	existing, ok := m.users[u.Email]
	if !ok {
		return user.ErrUserNotFound
	}
	stored := *u
	stored.WalletMoney = existing.WalletMoney
	m.users[u.Email] = stored
	return nil
}

// SetUser stores a user directly for testing.
func (m *MockAccounts) SetUser(u *user.User) {
	m.put(*u)
}

// GetUser reads a user without recording the call.
func (m *MockAccounts) GetUser(email string) (*user.User, bool) {
	u, ok := m.get(email)
	if !ok {
		return nil, false
	}
	return &u, true
}

func (m *MockAccounts) get(email string) (user.User, bool) {
	if m == nil {
		return user.User{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	return u, ok
}

func (m *MockAccounts) put(u user.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Email] = u
}

// MockCatalog is an in-memory product.Repository for testing
type MockCatalog struct {
	mu       sync.Mutex
	products map[string]product.Product

	FindCalls []string
	FindErr   error
	PutErr    error
}

func NewMockCatalog(products ...product.Product) *MockCatalog {
	m := &MockCatalog{products: make(map[string]product.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *MockCatalog) Find(ctx context.Context, id string) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindCalls = append(m.FindCalls, id)
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	return &p, nil
}

func (m *MockCatalog) List(ctx context.Context) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	products := make([]product.Product, 0, len(m.products))
	for _, p := range m.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (m *MockCatalog) Put(ctx context.Context, p product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.products[p.ID] = p
	return nil
}
