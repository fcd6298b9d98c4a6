package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ErrInvalidSignature is returned when a webhook fails verification.
var ErrInvalidSignature = errors.New("invalid signature")

// EventPaymentSucceeded is the webhook type that completes payments.
const EventPaymentSucceeded = string(stripe.EventTypePaymentIntentSucceeded)

// Intent is a created payment intent.
type Intent struct {
	ID           string
	ClientSecret string
}

// Event is a verified webhook event. Metadata is only set for payment intent events.
type Event struct {
	ID       string
	Type     string
	IntentID string
	Metadata map[string]string
}

// Gateway talks to the payment processor.
type Gateway interface {
	// CreateIntent opens a payment intent for amount minor units.
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (Intent, error)
	// ParseWebhook verifies the signature header and decodes the event.
	ParseWebhook(payload []byte, signature string) (Event, error)
}

// StripeGateway is a Gateway on the Stripe API.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway builds a gateway. backends may be nil to use Stripe's defaults.
func NewStripeGateway(apiKey, webhookSecret string, backends *stripe.Backends) *StripeGateway {
	api := &client.API{}
	api.Init(apiKey, backends)
	return &StripeGateway{api: api, webhookSecret: webhookSecret}
}

var _ Gateway = (*StripeGateway)(nil)

func (g *StripeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return out, nil
	}
	switch ev.Type {
	case stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return Event{}, fmt.Errorf("decode payment intent: %w", err)
		}
		out.IntentID = pi.ID
		out.Metadata = pi.Metadata
	}
	return out, nil
}
