package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidID       = errors.New("product id is required")
	ErrInvalidName     = errors.New("name is required")
	ErrInvalidCost     = errors.New("cost must not be negative")
)

// Product is a catalog entry. Carts keep a copy of it taken when the
// product was added, so fields here must stay serialisable.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Cost     decimal.Decimal `json:"cost"`
	Rating   int             `json:"rating"`
	Image    string          `json:"image"`
}

func (p Product) Validate() error {
	if p.ID == "" {
		return ErrInvalidID
	}
	if p.Name == "" {
		return ErrInvalidName
	}
	if p.Cost.IsNegative() {
		return ErrInvalidCost
	}
	return nil
}

// Catalog is the read-only view of products used by the cart.
type Catalog interface {
	// Find returns ErrProductNotFound when no product has the id.
	Find(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
}

// Repository is a Catalog that can also be written to, used for seeding.
type Repository interface {
	Catalog
	Put(ctx context.Context, p Product) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	return s.repo.Find(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// Seed validates and stores every product, stopping at the first failure.
func (s *Service) Seed(ctx context.Context, products []Product) error {
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("product %q: %w", p.ID, err)
		}
		if err := s.repo.Put(ctx, p); err != nil {
			return fmt.Errorf("failed to store product %q: %w", p.ID, err)
		}
	}
	return nil
}

// LoadSeedFile reads a JSON array of products.
func LoadSeedFile(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return products, nil
}
