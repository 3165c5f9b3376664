package email

import (
	"context"
	"fmt"
	"net/smtp"
)

// Sender delivers one HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Service builds shop emails and hands them to a Sender
type Service struct {
	sender Sender
}

// NewService creates a new email service
func NewService(sender Sender) *Service {
	return &Service{sender: sender}
}

// SendCheckoutReceipt sends the receipt for a paid cart
func (s *Service) SendCheckoutReceipt(ctx context.Context, to string, receipt Receipt) error {
	shortID := receipt.CartID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	subject := fmt.Sprintf("Your order receipt (cart %s)", shortID)
	return s.sender.Send(ctx, to, subject, BuildReceiptBody(receipt))
}

// SMTPSender sends mail through a plain SMTP relay such as MailHog
type SMTPSender struct {
	host string
	port string
	from string
}

func NewSMTPSender(host, port, from string) *SMTPSender {
	return &SMTPSender{
		host: host,
		port: port,
		from: from,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, htmlBody)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
