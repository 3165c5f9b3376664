package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/email"
	"github.com/example/ec-cart/internal/infrastructure/kafka"
)

// ReceiptSender is satisfied by *email.Service.
type ReceiptSender interface {
	SendCheckoutReceipt(ctx context.Context, to string, receipt email.Receipt) error
}

// Handler processes cart events for sending notifications
type Handler struct {
	emails ReceiptSender
	logger *zap.Logger
}

// NewHandler creates a new notification handler
func NewHandler(emails ReceiptSender, logger *zap.Logger) *Handler {
	return &Handler{
		emails: emails,
		logger: logger,
	}
}

// HandleEvent processes an event from Kafka. Only CartCheckedOut produces
// mail; everything else is acknowledged and skipped.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	event, err := kafka.DecodeEvent(value)
	if err != nil {
		h.logger.Error("failed to unmarshal event", zap.ByteString("key", key), zap.Error(err))
		return err
	}

	if event.EventType == cart.EventCheckedOut {
		return h.handleCheckedOut(ctx, event)
	}
	return nil
}

func (h *Handler) handleCheckedOut(ctx context.Context, event kafka.Event) error {
	var e cart.CartCheckedOut
	if err := json.Unmarshal(event.Data, &e); err != nil {
		h.logger.Error("failed to unmarshal CartCheckedOut event", zap.String("event_id", event.ID), zap.Error(err))
		return fmt.Errorf("failed to unmarshal CartCheckedOut: %w", err)
	}

	if e.Email == "" {
		h.logger.Warn("CartCheckedOut without email, skipping", zap.String("cart_id", e.CartID))
		return nil
	}

	h.logger.Info("sending checkout receipt",
		zap.String("cart_id", e.CartID),
		zap.String("email", e.Email),
		zap.Int("items", len(e.Items)),
	)

	if err := h.emails.SendCheckoutReceipt(ctx, e.Email, receiptFromEvent(e)); err != nil {
		h.logger.Error("failed to send checkout receipt", zap.String("cart_id", e.CartID), zap.Error(err))
		return err
	}

	h.logger.Info("checkout receipt sent", zap.String("cart_id", e.CartID))
	return nil
}

func receiptFromEvent(e cart.CartCheckedOut) email.Receipt {
	items := make([]email.ReceiptItem, len(e.Items))
	for i, item := range e.Items {
		items[i] = email.ReceiptItem{
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Quantity:  item.Quantity,
			Cost:      item.Product.Cost,
		}
	}
	return email.Receipt{
		CartID:  e.CartID,
		Items:   items,
		Total:   e.Total,
		Balance: e.WalletMoney,
		PaidAt:  e.CheckedOutAt,
	}
}
