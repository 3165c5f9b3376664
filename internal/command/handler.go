package command

import (
	"context"
	"errors"
	"time"

	"github.com/example/ec-cart/internal/apperr"
	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/user"
	"github.com/example/ec-cart/internal/infrastructure/kafka"
	"go.uber.org/zap"
)

// MsgUserNotFound is returned when a token refers to a deleted account.
const MsgUserNotFound = "User not found"

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Handler resolves the caller, runs the cart operation and publishes the
// resulting event. A nil publisher disables publishing.
type Handler struct {
	userSvc   *user.Service
	cartSvc   *cart.Service
	publisher Publisher
	logger    *zap.Logger
}

func NewHandler(userSvc *user.Service, cartSvc *cart.Service, publisher Publisher, logger *zap.Logger) *Handler {
	return &Handler{
		userSvc:   userSvc,
		cartSvc:   cartSvc,
		publisher: publisher,
		logger:    logger,
	}
}

// GetCart returns the caller's cart
func (h *Handler) GetCart(ctx context.Context, email string) (*cart.Cart, error) {
	u, err := h.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	return h.cartSvc.GetCartByUser(ctx, u)
}

// AddToCart adds a product to the caller's cart, creating the cart if needed
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) (*cart.Cart, error) {
	u, err := h.resolveUser(ctx, cmd.Email)
	if err != nil {
		return nil, err
	}

	c, err := h.cartSvc.AddProductToCart(ctx, u, cmd.ProductID, cmd.Quantity)
	if err != nil {
		return nil, err
	}

	item := c.Items[len(c.Items)-1]
	h.publish(ctx, c.ID, u.Email, cart.EventItemAdded, cart.ItemAddedToCart{
		CartID:    c.ID,
		Email:     u.Email,
		ProductID: item.Product.ID,
		Quantity:  item.Quantity,
		Cost:      item.Product.Cost,
		AddedAt:   c.UpdatedAt,
	})
	return c, nil
}

// UpdateCartItem changes the quantity of an item. A quantity of zero
// removes the item and returns the remaining cart.
func (h *Handler) UpdateCartItem(ctx context.Context, cmd UpdateCartItem) (*cart.Cart, error) {
	if cmd.Quantity == 0 {
		return h.RemoveFromCart(ctx, RemoveFromCart{Email: cmd.Email, ProductID: cmd.ProductID})
	}

	u, err := h.resolveUser(ctx, cmd.Email)
	if err != nil {
		return nil, err
	}

	c, err := h.cartSvc.UpdateProductInCart(ctx, u, cmd.ProductID, cmd.Quantity)
	if err != nil {
		return nil, err
	}

	h.publish(ctx, c.ID, u.Email, cart.EventQuantityUpdated, cart.CartItemQuantityUpdated{
		CartID:    c.ID,
		Email:     u.Email,
		ProductID: cmd.ProductID,
		Quantity:  cmd.Quantity,
		UpdatedAt: c.UpdatedAt,
	})
	return c, nil
}

// RemoveFromCart deletes an item and returns the remaining cart
func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) (*cart.Cart, error) {
	u, err := h.resolveUser(ctx, cmd.Email)
	if err != nil {
		return nil, err
	}

	if err := h.cartSvc.DeleteProductFromCart(ctx, u, cmd.ProductID); err != nil {
		return nil, err
	}

	c, err := h.cartSvc.GetCartByUser(ctx, u)
	if err != nil {
		return nil, err
	}

	h.publish(ctx, c.ID, u.Email, cart.EventItemRemoved, cart.ItemRemovedFromCart{
		CartID:    c.ID,
		Email:     u.Email,
		ProductID: cmd.ProductID,
		RemovedAt: c.UpdatedAt,
	})
	return c, nil
}

// Checkout pays for the cart and publishes CartCheckedOut for the notifier
func (h *Handler) Checkout(ctx context.Context, cmd Checkout) (*cart.Receipt, error) {
	u, err := h.resolveUser(ctx, cmd.Email)
	if err != nil {
		return nil, err
	}

	receipt, err := h.cartSvc.Checkout(ctx, u)
	if err != nil {
		return nil, err
	}

	h.publish(ctx, receipt.CartID, u.Email, cart.EventCheckedOut, cart.CheckedOutEvent(receipt))
	return receipt, nil
}

func (h *Handler) resolveUser(ctx context.Context, email string) (*user.User, error) {
	u, err := h.userSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperr.NotFound(MsgUserNotFound)
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// publish is best effort: the state change is already committed, so a
// failure is logged and not returned to the caller.
func (h *Handler) publish(ctx context.Context, cartID, email, eventType string, data any) {
	if h.publisher == nil {
		return
	}

	event, err := kafka.NewEvent(cartID, cart.AggregateType, eventType, data)
	if err != nil {
		h.logger.Error("failed to build event", zap.String("event_type", eventType), zap.Error(err))
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := h.publisher.Publish(publishCtx, email, event); err != nil {
		h.logger.Warn("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("cart_id", cartID),
			zap.Error(err),
		)
	}
}
