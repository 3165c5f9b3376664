package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/domain/user"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	address       TEXT NOT NULL,
	wallet_money  NUMERIC NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	cost     NUMERIC NOT NULL,
	rating   INTEGER NOT NULL DEFAULT 0,
	image    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS carts (
	id             TEXT PRIMARY KEY,
	email          TEXT NOT NULL UNIQUE,
	items          JSONB NOT NULL DEFAULT '[]',
	payment_option TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
`

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// EnsurePostgresSchema creates the tables if they do not exist.
func EnsurePostgresSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func NewPostgresStores(db *sql.DB) *Stores {
	return &Stores{
		Carts:    &PostgresCartStore{db: db},
		Users:    &PostgresUserStore{db: db},
		Products: &PostgresProductStore{db: db},
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// PostgresCartStore stores carts in PostgreSQL with items as JSONB.
type PostgresCartStore struct {
	db *sql.DB
}

func (s *PostgresCartStore) FindByEmail(ctx context.Context, email string) (*cart.Cart, error) {
	var c cart.Cart
	var itemsJSON []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, items, payment_option, created_at, updated_at
		FROM carts WHERE email = $1
	`, email).Scan(&c.ID, &c.Email, &itemsJSON, &c.PaymentOption, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cart.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
		return nil, fmt.Errorf("failed to decode cart items: %w", err)
	}
	if c.Items == nil {
		c.Items = []cart.CartItem{}
	}
	return &c, nil
}

// Create relies on the unique email constraint to resolve concurrent creates.
func (s *PostgresCartStore) Create(ctx context.Context, email string) (*cart.Cart, error) {
	c := cart.New(email)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO carts (id, email, items, payment_option, created_at, updated_at)
		VALUES ($1, $2, '[]', $3, $4, $5)
	`, c.ID, c.Email, c.PaymentOption, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, cart.ErrConflict
		}
		return nil, fmt.Errorf("failed to insert cart: %w", err)
	}
	return c, nil
}

func (s *PostgresCartStore) Save(ctx context.Context, c *cart.Cart) (*cart.Cart, error) {
	itemsJSON, err := json.Marshal(c.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart items: %w", err)
	}

	saved := c.Clone()
	saved.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE carts SET items = $2, payment_option = $3, updated_at = $4
		WHERE email = $1
	`, c.Email, itemsJSON, c.PaymentOption, saved.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, cart.ErrCartNotFound
	}
	return saved, nil
}

// CommitCheckout runs the wallet debit and the cart reset in one
// transaction. The debit is guarded in SQL so concurrent checkouts cannot
// overdraw the wallet.
func (s *PostgresCartStore) CommitCheckout(ctx context.Context, co cart.Checkout) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		UPDATE users SET wallet_money = wallet_money - $1, updated_at = $3
		WHERE email = $2 AND wallet_money >= $1
	`, co.Total, co.Email, now)
	if err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}
	if n == 0 {
		var exists bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, co.Email).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to read user: %w", err)
		}
		if !exists {
			return user.ErrUserNotFound
		}
		return cart.ErrInsufficientFunds
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE carts SET items = '[]', updated_at = $3
		WHERE email = $1 AND id = $2
	`, co.Email, co.CartID, now)
	if err != nil {
		return fmt.Errorf("failed to empty cart: %w", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to empty cart: %w", err)
	}
	if n == 0 {
		return cart.ErrCartNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout: %w", err)
	}
	return nil
}

// PostgresUserStore stores users in PostgreSQL.
type PostgresUserStore struct {
	db *sql.DB
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, address, wallet_money, created_at, updated_at
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Address, &u.WalletMoney, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

func (s *PostgresUserStore) Create(ctx context.Context, u *user.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, address, wallet_money, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Email, u.Name, u.PasswordHash, u.Address, u.WalletMoney, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Save updates the profile fields. The wallet is only changed by
// CommitCheckout.
func (s *PostgresUserStore) Save(ctx context.Context, u *user.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET name = $2, password_hash = $3, address = $4, updated_at = $5
		WHERE email = $1
	`, u.Email, u.Name, u.PasswordHash, u.Address, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

// PostgresProductStore stores the catalog in PostgreSQL.
type PostgresProductStore struct {
	db *sql.DB
}

func (s *PostgresProductStore) Find(ctx context.Context, id string) (*product.Product, error) {
	var p product.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, cost, rating, image FROM products WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Category, &p.Cost, &p.Rating, &p.Image)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, product.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return &p, nil
}

func (s *PostgresProductStore) List(ctx context.Context) ([]product.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, cost, rating, image FROM products ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []product.Product{}
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Cost, &p.Rating, &p.Image); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PostgresProductStore) Put(ctx context.Context, p product.Product) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, cost, rating, image)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			cost = EXCLUDED.cost,
			rating = EXCLUDED.rating,
			image = EXCLUDED.image
	`, p.ID, p.Name, p.Category, p.Cost, p.Rating, p.Image)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}
