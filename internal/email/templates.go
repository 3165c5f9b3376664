package email

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptItem represents a paid cart line for email purposes
type ReceiptItem struct {
	ProductID string
	Name      string
	Quantity  int
	Cost      decimal.Decimal
}

type Receipt struct {
	CartID  string
	Items   []ReceiptItem
	Total   decimal.Decimal
	Balance decimal.Decimal
	PaidAt  time.Time
}

// BuildReceiptBody builds the HTML body for the checkout receipt email
func BuildReceiptBody(r Receipt) string {
	var itemsHTML strings.Builder
	for _, item := range r.Items {
		name := item.Name
		if name == "" {
			name = item.ProductID
		}
		itemsHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">₹%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">₹%s</td>
			</tr>`,
			html.EscapeString(name),
			item.Quantity,
			formatMoney(item.Cost),
			formatMoney(item.Cost.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Thank you for your order</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Your payment was received on %s.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Cart</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Product</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Qty</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Price</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Total</span>
			<span style="font-size: 24px; font-weight: bold; color: #667eea; margin-left: 10px;">₹%s</span>
			<p style="margin: 10px 0 0 0; font-size: 14px; color: #666;">Wallet balance: ₹%s</p>
		</div>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This email was sent automatically. Please do not reply.
		</p>
	</div>
</body>
</html>`,
		r.PaidAt.Format("2 Jan 2006 15:04 MST"),
		html.EscapeString(r.CartID),
		itemsHTML.String(),
		formatMoney(r.Total),
		formatMoney(r.Balance),
	)
}

// formatMoney renders two decimals with comma separators, e.g. 1,234.50
func formatMoney(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var result strings.Builder
	if d.IsNegative() {
		result.WriteString("-")
	}
	remainder := len(intPart) % 3
	if remainder > 0 {
		result.WriteString(intPart[:remainder])
	}
	for i := remainder; i < len(intPart); i += 3 {
		if result.Len() > 0 && !(result.Len() == 1 && d.IsNegative()) {
			result.WriteString(",")
		}
		result.WriteString(intPart[i : i+3])
	}
	return result.String() + "." + frac
}
