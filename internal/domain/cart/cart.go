package cart

import (
	"time"

	"github.com/example/ec-cart/internal/domain/product"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateType = "Cart"

// DefaultPaymentOption is assigned to every new cart.
const DefaultPaymentOption = "PAYMENT_OPTION_DEFAULT"

// CartItem holds the product as it was when added, so later catalog price
// changes do not affect what the shopper pays.
type CartItem struct {
	Product  product.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Cart belongs to exactly one user, identified by email.
type Cart struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Items         []CartItem `json:"cartItems"`
	PaymentOption string     `json:"paymentOption"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// New returns an empty cart for the user.
func New(email string) *Cart {
	now := time.Now()
	return &Cart{
		ID:            uuid.New().String(),
		Email:         email,
		Items:         []CartItem{},
		PaymentOption: DefaultPaymentOption,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// indexOf returns the position of the item for productID, or -1.
func (c *Cart) indexOf(productID string) int {
	for i, item := range c.Items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) HasProduct(productID string) bool {
	return c.indexOf(productID) >= 0
}

// Clone copies the cart so callers can mutate items without touching the
// stored value.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]CartItem, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}

// Total sums snapshot cost times quantity over all items.
func Total(c *Cart) decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Product.Cost.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
