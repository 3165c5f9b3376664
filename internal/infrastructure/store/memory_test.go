package store

import (
	"context"
	"sync"
	"testing"

	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/domain/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryStores(t *testing.T) *Stores {
	t.Helper()
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	return stores
}

func seedUser(t *testing.T, stores *Stores, email string, wallet int64) {
	t.Helper()
	require.NoError(t, stores.Users.Create(context.Background(), &user.User{
		ID:          "user-" + email,
		Email:       email,
		Name:        "Shopper",
		Address:     "221B Baker Street",
		WalletMoney: decimal.NewFromInt(wallet),
	}))
}

// ============================================
// Carts
// ============================================

func TestMemoryCartStore_CreateAndFind(t *testing.T) {
	stores := newTestMemoryStores(t)
	ctx := context.Background()

	_, err := stores.Carts.FindByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, cart.ErrCartNotFound)

	created, err := stores.Carts.Create(ctx, "a@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Empty(t, created.Items)

	found, err := stores.Carts.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestMemoryCartStore_CreateTwiceConflicts(t *testing.T) {
	stores := newTestMemoryStores(t)
	ctx := context.Background()

	_, err := stores.Carts.Create(ctx, "a@example.com")
	require.NoError(t, err)

	_, err = stores.Carts.Create(ctx, "a@example.com")
	assert.ErrorIs(t, err, cart.ErrConflict)
}

func TestMemoryCartStore_ConcurrentCreateOneWins(t *testing.T) {
	stores := newTestMemoryStores(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := stores.Carts.Create(ctx, "race@example.com")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else if assert.ErrorIs(t, err, cart.ErrConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 19, conflicts)
}

func TestMemoryCartStore_SaveDoesNotAlias(t *testing.T) {
	stores := newTestMemoryStores(t)
	ctx := context.Background()
	c, err := stores.Carts.Create(ctx, "a@example.com")
	require.NoError(t, err)

	c.Items = append(c.Items, cart.CartItem{Product: product.Product{ID: "p1", Cost: decimal.NewFromInt(5)}, Quantity: 2})
	_, err = stores.Carts.Save(ctx, c)
	require.NoError(t, err)

	// Mutating the caller's copy must not leak into the store.
	c.Items[0].Quantity = 99

	found, err := stores.Carts.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, 2, found.Items[0].Quantity)
}

func TestMemoryCartStore_SaveUnknownCart(t *testing.T) {
	stores := newTestMemoryStores(t)

	_, err := stores.Carts.Save(context.Background(), cart.New("ghost@example.com"))

	assert.ErrorIs(t, err, cart.ErrCartNotFound)
}

// ============================================
// Checkout commit
// ============================================

func TestMemoryCartStore_CommitCheckout(t *testing.T) {
	stores := newTestMemoryStores(t)
	ctx := context.Background()
	seedUser(t, stores, "a@example.com", 300)
	c, err := stores.Carts.Create(ctx, "a@example.com")
	require.NoError(t, err)
	c.Items = []cart.CartItem{{Product: product.Product{ID: "p1", Cost: decimal.NewFromInt(100)}, Quantity: 2}}
	_, err = stores.Carts.Save(ctx, c)
	require.NoError(t, err)

	err = stores.Carts.CommitCheckout(ctx, cart.Checkout{CartID: c.ID, Email: "a@example.com", Total: decimal.NewFromInt(200)})

	require.NoError(t, err)
	u, err := stores.Users.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, u.WalletMoney.Equal(decimal.NewFromInt(100)))
	found, err := stores.Carts.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Empty(t, found.Items)
	assert.Equal(t, c.ID, found.ID)
}

func TestMemoryCartStore_CommitCheckout_InsufficientFunds(t *testing.T) {
	stores := newTestMemoryStores(t)
	ctx := context.Background()
	seedUser(t, stores, "a@example.com", 50)
	c, err := stores.Carts.Create(ctx, "a@example.com")
	require.NoError(t, err)
	c.Items = []cart.CartItem{{Product: product.Product{ID: "p1", Cost: decimal.NewFromInt(100)}, Quantity: 1}}
	_, err = stores.Carts.Save(ctx, c)
	require.NoError(t, err)

	err = stores.Carts.CommitCheckout(ctx, cart.Checkout{CartID: c.ID, Email: "a@example.com", Total: decimal.NewFromInt(100)})

	assert.ErrorIs(t, err, cart.ErrInsufficientFunds)
	u, _ := stores.Users.FindByEmail(ctx, "a@example.com")
	assert.True(t, u.WalletMoney.Equal(decimal.NewFromInt(50)))
	found, _ := stores.Carts.FindByEmail(ctx, "a@example.com")
	assert.Len(t, found.Items, 1)
}

func TestMemoryCartStore_CommitCheckout_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	stores := newTestMemoryStores(t)
	ctx := context.Background()
	seedUser(t, stores, "a@example.com", 100)
	c, err := stores.Carts.Create(ctx, "a@example.com")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = stores.Carts.CommitCheckout(ctx, cart.Checkout{CartID: c.ID, Email: "a@example.com", Total: decimal.NewFromInt(30)})
		}()
	}
	wg.Wait()

	u, err := stores.Users.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, u.WalletMoney.Equal(decimal.NewFromInt(10)), "wallet was %s", u.WalletMoney)
}

func TestMemoryCartStore_CommitCheckout_MissingRows(t *testing.T) {
	stores := newTestMemoryStores(t)
	ctx := context.Background()

	err := stores.Carts.CommitCheckout(ctx, cart.Checkout{CartID: "nope", Email: "a@example.com", Total: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, cart.ErrCartNotFound)

	c, err := stores.Carts.Create(ctx, "a@example.com")
	require.NoError(t, err)
	err = stores.Carts.CommitCheckout(ctx, cart.Checkout{CartID: c.ID, Email: "a@example.com", Total: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

// ============================================
// Users and products
// ============================================

func TestMemoryUserStore(t *testing.T) {
	stores := newTestMemoryStores(t)
	ctx := context.Background()
	seedUser(t, stores, "a@example.com", 500)

	err := stores.Users.Create(ctx, &user.User{ID: "other", Email: "a@example.com"})
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	u, err := stores.Users.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	u.Address = "Elsewhere 5"
	require.NoError(t, stores.Users.Save(ctx, u))

	u, err = stores.Users.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Elsewhere 5", u.Address)

	err = stores.Users.Save(ctx, &user.User{ID: "x", Email: "ghost@example.com"})
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	_, err = stores.Users.FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestMemoryUserStore_SaveKeepsCommittedWallet(t *testing.T) {
	stores := newTestMemoryStores(t)
	ctx := context.Background()
	seedUser(t, stores, "a@example.com", 300)
	c, err := stores.Carts.Create(ctx, "a@example.com")
	require.NoError(t, err)

	stale, err := stores.Users.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)

	err = stores.Carts.CommitCheckout(ctx, cart.Checkout{CartID: c.ID, Email: "a@example.com", Total: decimal.NewFromInt(250)})
	require.NoError(t, err)

	stale.Address = "10 Downing Street"
	require.NoError(t, stores.Users.Save(ctx, stale))

	u, err := stores.Users.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "10 Downing Street", u.Address)
	assert.True(t, u.WalletMoney.Equal(decimal.NewFromInt(50)), "wallet was %s", u.WalletMoney)
}

func TestMemoryProductStore(t *testing.T) {
	stores := newTestMemoryStores(t)
	ctx := context.Background()

	require.NoError(t, stores.Products.Put(ctx, product.Product{ID: "p2", Name: "Mouse", Cost: decimal.NewFromInt(50)}))
	require.NoError(t, stores.Products.Put(ctx, product.Product{ID: "p1", Name: "Laptop", Cost: decimal.NewFromInt(100)}))

	p, err := stores.Products.Find(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Laptop", p.Name)

	_, err = stores.Products.Find(ctx, "p3")
	assert.ErrorIs(t, err, product.ErrProductNotFound)

	products, err := stores.Products.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, "p2", products[1].ID)
}
