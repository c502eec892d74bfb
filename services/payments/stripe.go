package payments

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway talks to Stripe payment intents. Amounts are in paise.
type StripeGateway struct {
	webhookSecret string
	currency      string
}

func NewStripeGateway() (*StripeGateway, error) {
	key := os.Getenv("STRIPE_SECRET_KEY")
	if key == "" {
		return nil, fmt.Errorf("stripe configuration missing: STRIPE_SECRET_KEY not set")
	}
	stripe.Key = key

	currency := os.Getenv("STRIPE_CURRENCY")
	if currency == "" {
		currency = "inr"
	}

	return &StripeGateway{
		webhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		currency:      currency,
	}, nil
}

func (g *StripeGateway) CreateIntent(amount int64, md Metadata) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("user_id", md.UserID)
	params.AddMetadata("order_ids", strings.Join(md.OrderIDs, ","))

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create intent: %w", err)
	}
	return fromStripeIntent(pi), nil
}

func (g *StripeGateway) RetrieveIntent(id string) (*Intent, error) {
	pi, err := paymentintent.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe retrieve intent %s: %w", id, err)
	}
	return fromStripeIntent(pi), nil
}

// VerifyWebhook authenticates the raw payload against the Stripe-Signature
// header and fails closed on any mismatch.
func (g *StripeGateway) VerifyWebhook(payload []byte, sigHeader string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	out := &Event{Type: string(event.Type)}
	if out.Type == EventPaymentSucceeded || out.Type == EventPaymentFailed {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("webhook payload parse failed: %w", err)
		}
		out.Intent = *fromStripeIntent(&pi)
	}
	return out, nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *Intent {
	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Method:       "card",
	}
	if len(pi.PaymentMethodTypes) > 0 {
		intent.Method = pi.PaymentMethodTypes[0]
	}
	if pi.Metadata != nil {
		intent.UserID = pi.Metadata["user_id"]
		if ids := pi.Metadata["order_ids"]; ids != "" {
			intent.OrderIDs = strings.Split(ids, ",")
		}
	}
	return intent
}
