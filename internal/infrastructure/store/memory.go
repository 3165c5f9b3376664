package store

import (
	"context"
	"fmt"
	"time"

	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/domain/user"
	"github.com/hashicorp/go-memdb"
)

const (
	cartsTable    = "carts"
	usersTable    = "users"
	productsTable = "products"
)

// memorySchema keys carts and users by id with a unique email index.
// memdb does not reject duplicates on secondary indexes, so writers check
// the email index inside the write transaction, which memdb serialises.
var memorySchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		cartsTable: {
			Name: cartsTable,
			Indexes: map[string]*memdb.IndexSchema{
				"id":    {Name: "id", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "ID"}},
				"email": {Name: "email", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Email"}},
			},
		},
		usersTable: {
			Name: usersTable,
			Indexes: map[string]*memdb.IndexSchema{
				"id":    {Name: "id", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "ID"}},
				"email": {Name: "email", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Email"}},
			},
		},
		productsTable: {
			Name: productsTable,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {Name: "id", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "ID"}},
			},
		},
	},
}

// NewMemoryStores returns the in-memory backend. Objects handed to memdb
// are never mutated afterwards; reads return copies.
func NewMemoryStores() (*Stores, error) {
	db, err := memdb.NewMemDB(memorySchema)
	if err != nil {
		return nil, fmt.Errorf("failed to create memdb: %w", err)
	}
	return &Stores{
		Carts:    &MemoryCartStore{db: db},
		Users:    &MemoryUserStore{db: db},
		Products: &MemoryProductStore{db: db},
	}, nil
}

// MemoryCartStore implements CartStore on go-memdb.
type MemoryCartStore struct {
	db *memdb.MemDB
}

func (s *MemoryCartStore) FindByEmail(ctx context.Context, email string) (*cart.Cart, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(cartsTable, "email", email)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if raw == nil {
		return nil, cart.ErrCartNotFound
	}
	return raw.(*cart.Cart).Clone(), nil
}

func (s *MemoryCartStore) Create(ctx context.Context, email string) (*cart.Cart, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(cartsTable, "email", email)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if existing != nil {
		return nil, cart.ErrConflict
	}

	c := cart.New(email)
	if err := txn.Insert(cartsTable, c); err != nil {
		return nil, fmt.Errorf("failed to insert cart: %w", err)
	}
	txn.Commit()
	return c.Clone(), nil
}

func (s *MemoryCartStore) Save(ctx context.Context, c *cart.Cart) (*cart.Cart, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(cartsTable, "email", c.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if existing == nil {
		return nil, cart.ErrCartNotFound
	}

	stored := c.Clone()
	stored.ID = existing.(*cart.Cart).ID
	stored.UpdatedAt = time.Now()
	if err := txn.Insert(cartsTable, stored); err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}
	txn.Commit()
	return stored.Clone(), nil
}

// CommitCheckout debits the wallet and empties the cart in one write txn.
func (s *MemoryCartStore) CommitCheckout(ctx context.Context, co cart.Checkout) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	rawCart, err := txn.First(cartsTable, "email", co.Email)
	if err != nil {
		return fmt.Errorf("failed to read cart: %w", err)
	}
	if rawCart == nil || rawCart.(*cart.Cart).ID != co.CartID {
		return cart.ErrCartNotFound
	}
	rawUser, err := txn.First(usersTable, "email", co.Email)
	if err != nil {
		return fmt.Errorf("failed to read user: %w", err)
	}
	if rawUser == nil {
		return user.ErrUserNotFound
	}

	u := *rawUser.(*user.User)
	if u.WalletMoney.LessThan(co.Total) {
		return cart.ErrInsufficientFunds
	}

	now := time.Now()
	u.WalletMoney = u.WalletMoney.Sub(co.Total)
	u.UpdatedAt = now
	if err := txn.Insert(usersTable, &u); err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}

	c := rawCart.(*cart.Cart).Clone()
	c.Items = []cart.CartItem{}
	c.UpdatedAt = now
	if err := txn.Insert(cartsTable, c); err != nil {
		return fmt.Errorf("failed to empty cart: %w", err)
	}

	txn.Commit()
	return nil
}

// MemoryUserStore implements user.Accounts on go-memdb.
type MemoryUserStore struct {
	db *memdb.MemDB
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(usersTable, "email", email)
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	if raw == nil {
		return nil, user.ErrUserNotFound
	}
	u := *raw.(*user.User)
	return &u, nil
}

func (s *MemoryUserStore) Create(ctx context.Context, u *user.User) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(usersTable, "email", u.Email)
	if err != nil {
		return fmt.Errorf("failed to read user: %w", err)
	}
	if existing != nil {
		return user.ErrEmailTaken
	}

	stored := *u
	if err := txn.Insert(usersTable, &stored); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	txn.Commit()
	return nil
}

func (s *MemoryUserStore) Save(ctx context.Context, u *user.User) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(usersTable, "email", u.Email)
	if err != nil {
		return fmt.Errorf("failed to read user: %w", err)
	}
	if existing == nil {
		return user.ErrUserNotFound
	}

	// The wallet is only changed by CommitCheckout.
	stored := *u
	stored.WalletMoney = existing.(*user.User).WalletMoney
	if err := txn.Insert(usersTable, &stored); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	txn.Commit()
	return nil
}

// MemoryProductStore implements product.Repository on go-memdb.
type MemoryProductStore struct {
	db *memdb.MemDB
}

func (s *MemoryProductStore) Find(ctx context.Context, id string) (*product.Product, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(productsTable, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to read product: %w", err)
	}
	if raw == nil {
		return nil, product.ErrProductNotFound
	}
	p := *raw.(*product.Product)
	return &p, nil
}

// List returns products ordered by id.
func (s *MemoryProductStore) List(ctx context.Context) ([]product.Product, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(productsTable, "id")
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	products := []product.Product{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		products = append(products, *raw.(*product.Product))
	}
	return products, nil
}

func (s *MemoryProductStore) Put(ctx context.Context, p product.Product) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(productsTable, &p); err != nil {
		return fmt.Errorf("failed to put product: %w", err)
	}
	txn.Commit()
	return nil
}
