package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const senderName = "EC Cart"

// sendgridClient is satisfied by *sendgrid.Client.
type sendgridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender sends mail through the SendGrid v3 API
type SendGridSender struct {
	client sendgridClient
	from   string
}

func NewSendGridSender(apiKey, from string) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is empty")
	}
	if from == "" {
		return nil, errors.New("from address is empty")
	}
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey), from: from}, nil
}

func (s *SendGridSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if to == "" {
		return errors.New("to address is empty")
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(senderName, s.from),
		subject,
		mail.NewEmail("", to),
		subject,
		htmlBody,
	)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}
	return nil
}
