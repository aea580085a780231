package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/storelab/go-checkout-saga/internal/aws"
	"github.com/storelab/go-checkout-saga/internal/cart"
)

// Confirmation is the payload handed to the notifier after an order confirms.
type Confirmation struct {
	OrderID string
	Email   string
	Totals  cart.Totals
}

// Notifier sends the order confirmation. Failures never alter order status;
// the caller may retry the send independently.
type Notifier interface {
	SendConfirmation(ctx context.Context, c Confirmation) error
}

// SESNotifier sends a plain-text confirmation via SESv2.
type SESNotifier struct {
	client aws.SESAPI
	from   string
}

func NewSESNotifier(client aws.SESAPI, from string) *SESNotifier {
	return &SESNotifier{client: client, from: from}
}

func (n *SESNotifier) SendConfirmation(ctx context.Context, c Confirmation) error {
	subject := fmt.Sprintf("Order Confirmation - %s", c.OrderID)
	body := fmt.Sprintf("Your order %s has been confirmed. Total: $%s",
		c.OrderID, c.Totals.Total.StringFixed(2))

	input := &sesv2.SendEmailInput{
		FromEmailAddress: &n.from,
		Destination: &sestypes.Destination{
			ToAddresses: []string{c.Email},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: &subject},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: &body},
				},
			},
		},
	}
	if _, err := n.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// LogNotifier just records the confirmation; used in local mode and when no
// sender address is configured.
type LogNotifier struct{}

func (LogNotifier) SendConfirmation(ctx context.Context, c Confirmation) error {
	log.Printf("[notify] order confirmation order=%s email=%s total=%s",
		c.OrderID, c.Email, c.Totals.Total.StringFixed(2))
	return nil
}
