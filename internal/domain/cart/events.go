package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventItemAdded       = "ItemAddedToCart"
	EventQuantityUpdated = "CartItemQuantityUpdated"
	EventItemRemoved     = "ItemRemovedFromCart"
	EventCheckedOut      = "CartCheckedOut"
)

type ItemAddedToCart struct {
	CartID    string          `json:"cart_id"`
	Email     string          `json:"email"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Cost      decimal.Decimal `json:"cost"`
	AddedAt   time.Time       `json:"added_at"`
}

type CartItemQuantityUpdated struct {
	CartID    string    `json:"cart_id"`
	Email     string    `json:"email"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ItemRemovedFromCart struct {
	CartID    string    `json:"cart_id"`
	Email     string    `json:"email"`
	ProductID string    `json:"product_id"`
	RemovedAt time.Time `json:"removed_at"`
}

type CartCheckedOut struct {
	CartID       string          `json:"cart_id"`
	Email        string          `json:"email"`
	Items        []CartItem      `json:"items"`
	Total        decimal.Decimal `json:"total"`
	WalletMoney  decimal.Decimal `json:"wallet_money"`
	CheckedOutAt time.Time       `json:"checked_out_at"`
}

// CheckedOutEvent builds the event published for a receipt.
func CheckedOutEvent(r *Receipt) CartCheckedOut {
	return CartCheckedOut{
		CartID:       r.CartID,
		Email:        r.Email,
		Items:        r.Items,
		Total:        r.Total,
		WalletMoney:  r.Balance,
		CheckedOutAt: r.PaidAt,
	}
}
