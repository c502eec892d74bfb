package sms

import (
	"fmt"
	"os"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Notifier sends a text message to a customer. Delivery dispatch treats send
// failures as non-fatal; implementations should not retry forever.
type Notifier interface {
	Send(to, body string) error
}

// TwilioNotifier sends SMS through Twilio.
type TwilioNotifier struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioNotifier() (*TwilioNotifier, error) {
	sid := os.Getenv("TWILIO_ACCOUNT_SID")
	token := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_PHONE_NUMBER")
	if sid == "" || token == "" || from == "" {
		return nil, fmt.Errorf("twilio configuration missing")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: sid,
		Password: token,
	})
	return &TwilioNotifier{client: client, from: from}, nil
}

func (n *TwilioNotifier) Send(to, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(n.from)
	params.SetBody(body)

	_, err := n.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send to %s: %w", to, err)
	}
	return nil
}
