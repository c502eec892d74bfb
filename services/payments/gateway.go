package payments

// Intent statuses mirrored from the provider. Only succeeded triggers
// reconciliation; anything else is reported back to the client as pending.
const (
	StatusSucceeded = "succeeded"
)

// Webhook event types the reconciliation core reacts to.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// Metadata tags an intent with the checkout batch it pays for.
type Metadata struct {
	UserID   string
	OrderIDs []string
}

// Intent is the provider-side payment object, normalized so the order and
// payment controllers never import provider types directly.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64 // minor currency units (paise)
	Method       string
	UserID       string
	OrderIDs     []string
}

// Event is a verified webhook notification.
type Event struct {
	Type   string
	Intent Intent
}

// Gateway creates and retrieves payment intents.
type Gateway interface {
	CreateIntent(amount int64, md Metadata) (*Intent, error)
	RetrieveIntent(id string) (*Intent, error)
}

// WebhookVerifier authenticates an inbound webhook payload against its
// signature header. Verification must use the raw request body.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, sigHeader string) (*Event, error)
}
