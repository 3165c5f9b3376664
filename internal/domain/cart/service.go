package cart

import (
	"context"
	"errors"
	"time"

	"github.com/example/ec-cart/internal/apperr"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/domain/user"
	"github.com/shopspring/decimal"
)

// Messages returned to the caller. They are part of the public contract.
const (
	MsgNoCart              = "User does not have a cart"
	MsgNoCartForUpdate     = "User does not have a cart. Use POST to create cart and add a product"
	MsgNoCartForDelete     = "Cart not exist for User"
	MsgProductNotInCatalog = "Product doesn't exist in database"
	MsgProductAlreadyAdded = "Product already in cart. Use the cart sidebar to update or remove product from cart"
	MsgProductNotInCart    = "Product not in cart"
	MsgProductNotInCartDel = "Product doesn't exist in cart"
	MsgCartEmpty           = "Cart is empty"
	MsgAddressNotSet       = "Address not set"
	MsgInsufficientFunds   = "User has insufficient money to process"
	MsgInvalidQuantity     = "Quantity must be a positive integer"
)

// Receipt describes a completed checkout.
type Receipt struct {
	CartID  string          `json:"cartId"`
	Email   string          `json:"email"`
	Items   []CartItem      `json:"items"`
	Total   decimal.Decimal `json:"total"`
	Balance decimal.Decimal `json:"walletMoney"`
	PaidAt  time.Time       `json:"paidAt"`
}

type Service struct {
	carts     Store
	catalog   product.Catalog
	committer CheckoutCommitter
}

func NewService(carts Store, catalog product.Catalog, committer CheckoutCommitter) *Service {
	return &Service{
		carts:     carts,
		catalog:   catalog,
		committer: committer,
	}
}

// GetCartByUser returns the user's cart without modifying it.
func (s *Service) GetCartByUser(ctx context.Context, u *user.User) (*Cart, error) {
	c, err := s.carts.FindByEmail(ctx, u.Email)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return nil, apperr.NotFound(MsgNoCart)
		}
		return nil, apperr.Internal(err)
	}
	return c, nil
}

// AddProductToCart appends a snapshot of the product, creating the cart on
// first use. The cart may be created even if a later check fails.
func (s *Service) AddProductToCart(ctx context.Context, u *user.User, productID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, apperr.BadRequest(MsgInvalidQuantity)
	}

	c, err := s.findOrCreate(ctx, u.Email)
	if err != nil {
		return nil, err
	}

	p, err := s.findProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if c.HasProduct(p.ID) {
		return nil, apperr.BadRequest(MsgProductAlreadyAdded)
	}

	c = c.Clone()
	c.Items = append(c.Items, CartItem{Product: *p, Quantity: quantity})
	return s.save(ctx, c)
}

// UpdateProductInCart overwrites the quantity of a product already in the
// cart. The quantity is checked only once the cart and product are known.
func (s *Service) UpdateProductInCart(ctx context.Context, u *user.User, productID string, quantity int) (*Cart, error) {
	c, err := s.carts.FindByEmail(ctx, u.Email)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return nil, apperr.BadRequest(MsgNoCartForUpdate)
		}
		return nil, apperr.Internal(err)
	}

	if _, err := s.findProduct(ctx, productID); err != nil {
		return nil, err
	}

	idx := c.indexOf(productID)
	if idx < 0 {
		return nil, apperr.BadRequest(MsgProductNotInCart)
	}

	if quantity < 1 {
		return nil, apperr.BadRequest(MsgInvalidQuantity)
	}

	c = c.Clone()
	c.Items[idx].Quantity = quantity
	return s.save(ctx, c)
}

// DeleteProductFromCart removes one item, keeping the order of the rest.
func (s *Service) DeleteProductFromCart(ctx context.Context, u *user.User, productID string) error {
	c, err := s.carts.FindByEmail(ctx, u.Email)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return apperr.BadRequest(MsgNoCartForDelete)
		}
		return apperr.Internal(err)
	}

	idx := c.indexOf(productID)
	if idx < 0 {
		return apperr.BadRequest(MsgProductNotInCartDel)
	}

	c = c.Clone()
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	_, err = s.save(ctx, c)
	return err
}

// Checkout validates the cart and the user, then debits the wallet and
// empties the cart as a single commit. Prices come from the cart snapshot.
// On success u.WalletMoney reflects the new balance.
func (s *Service) Checkout(ctx context.Context, u *user.User) (*Receipt, error) {
	c, err := s.carts.FindByEmail(ctx, u.Email)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return nil, apperr.NotFound(MsgNoCart)
		}
		return nil, apperr.Internal(err)
	}

	if len(c.Items) == 0 {
		return nil, apperr.BadRequest(MsgCartEmpty)
	}

	if !u.HasSetNonDefaultAddress() {
		return nil, apperr.BadRequest(MsgAddressNotSet)
	}

	total := Total(c)
	if total.GreaterThan(u.WalletMoney) {
		return nil, apperr.BadRequest(MsgInsufficientFunds)
	}

	err = s.committer.CommitCheckout(ctx, Checkout{
		CartID: c.ID,
		Email:  u.Email,
		Total:  total,
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, apperr.BadRequest(MsgInsufficientFunds)
		}
		return nil, apperr.Internal(err)
	}

	u.WalletMoney = u.WalletMoney.Sub(total)

	return &Receipt{
		CartID:  c.ID,
		Email:   u.Email,
		Items:   c.Items,
		Total:   total,
		Balance: u.WalletMoney,
		PaidAt:  time.Now(),
	}, nil
}

func (s *Service) findOrCreate(ctx context.Context, email string) (*Cart, error) {
	c, err := s.carts.FindByEmail(ctx, email)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, apperr.Internal(err)
	}

	// A concurrent create for the same user surfaces as ErrConflict.
	c, err = s.carts.Create(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return c, nil
}

func (s *Service) findProduct(ctx context.Context, productID string) (*product.Product, error) {
	p, err := s.catalog.Find(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			return nil, apperr.BadRequest(MsgProductNotInCatalog)
		}
		return nil, apperr.Internal(err)
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, c *Cart) (*Cart, error) {
	saved, err := s.carts.Save(ctx, c)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return saved, nil
}
