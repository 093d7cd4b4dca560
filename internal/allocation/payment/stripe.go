package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"leadmarket_backend/platform/config"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Hosted checkout sessions must live between 30 minutes and 24 hours.
const (
	minCheckoutTTL = 31 * time.Minute
	maxCheckoutTTL = 24 * time.Hour
)

// StripeGateway talks to Stripe Checkout.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	currency      string
	successURL    string
	cancelURL     string
	checkoutTTL   time.Duration
	now           func() time.Time
}

// NewStripeGateway creates a gateway whose API calls are bounded by the
// configured payment timeout.
func NewStripeGateway(cfg config.PaymentConfig) *StripeGateway {
	httpClient := &http.Client{Timeout: cfg.GetPaymentTimeout()}
	api := &client.API{}
	api.Init(cfg.GetStripeSecretKey(), stripe.NewBackends(httpClient))
	return newStripeGateway(api, cfg)
}

// NewStripeGatewayWithBackend points the gateway at a custom API base URL.
func NewStripeGatewayWithBackend(cfg config.PaymentConfig, baseURL string) *StripeGateway {
	httpClient := &http.Client{Timeout: cfg.GetPaymentTimeout()}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(baseURL),
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	api := &client.API{}
	api.Init(cfg.GetStripeSecretKey(), &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return newStripeGateway(api, cfg)
}

func newStripeGateway(api *client.API, cfg config.PaymentConfig) *StripeGateway {
	currency := cfg.GetPaymentCurrency()
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeGateway{
		api:           api,
		webhookSecret: cfg.GetStripeWebhookSecret(),
		currency:      currency,
		successURL:    cfg.GetCheckoutSuccessURL(),
		cancelURL:     cfg.GetCheckoutCancelURL(),
		checkoutTTL:   EffectiveCheckoutTTL(cfg.GetCheckoutTTL()),
		now:           time.Now,
	}
}

// CreateCustomer registers the vendor with Stripe and returns the customer id.
func (g *StripeGateway) CreateCustomer(ctx context.Context, p CustomerParams) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(p.Email),
		Name:  stripe.String(p.CompanyName),
	}
	params.Context = ctx
	params.AddMetadata("vendor_id", p.VendorID.String())

	customer, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return customer.ID, nil
}

// CreateCheckout opens a one-item payment session for a lead.
func (g *StripeGateway) CreateCheckout(ctx context.Context, p CheckoutParams) (CheckoutSession, error) {
	expiresAt := g.now().Add(g.checkoutTTL)
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer:   stripe.String(p.CustomerID),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		ExpiresAt:  stripe.Int64(expiresAt.Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.currency),
				UnitAmount: stripe.Int64(AmountInCents(p.Amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(p.Description),
				},
			},
		}},
	}
	params.Context = ctx
	params.AddMetadata("lead_id", p.LeadID.String())
	params.AddMetadata("vendor_id", p.VendorID.String())

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create stripe checkout session: %w", err)
	}

	out := CheckoutSession{ID: session.ID, URL: session.URL, ExpiresAt: expiresAt}
	if session.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(session.ExpiresAt, 0)
	}
	return out, nil
}

// ExpireCheckout closes an open session so it can no longer be paid.
func (g *StripeGateway) ExpireCheckout(ctx context.Context, sessionID string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := g.api.CheckoutSessions.Expire(sessionID, params); err != nil {
		return fmt.Errorf("expire stripe checkout session: %w", err)
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes checkout events.
// Events of other types come back with only ID and Type set.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("verify stripe webhook: %w", err)
	}

	out := WebhookEvent{ID: event.ID, Type: EventType(event.Type)}
	if !out.Type.carriesSession() {
		return out, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = session.ID
	out.Paid = session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
		session.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
	out.LeadID = session.Metadata["lead_id"]
	out.VendorID = session.Metadata["vendor_id"]
	return out, nil
}

// EffectiveCheckoutTTL is the session lifetime requested from Stripe, which
// only accepts values between 30 minutes and 24 hours.
func EffectiveCheckoutTTL(ttl time.Duration) time.Duration {
	if ttl < minCheckoutTTL {
		return minCheckoutTTL
	}
	if ttl > maxCheckoutTTL {
		return maxCheckoutTTL
	}
	return ttl
}
