// Package payment provides Stripe integration for the priority-deposit flow.
package payment

import (
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/paymentintent"
)

// MetadataEmailKey is the metadata key carrying the signup email through the
// checkout session to the payment intent, so webhook events can be correlated
// back to a waitlist record without a separate lookup table.
const MetadataEmailKey = "waitlist_email"

// MetadataUserInfoKey carries opaque serialized user info through to the gateway.
const MetadataUserInfoKey = "user_info"

// DepositSessionParams represents parameters for creating a deposit
// Checkout Session.
type DepositSessionParams struct {
	Email      string
	UserInfo   string // opaque serialized metadata, passed through
	Amount     int64  // cents; fixed by configuration, never user-supplied
	SuccessURL string
	CancelURL  string
}

// Client is an interface for Stripe operations to enable testing with mocks.
type Client interface {
	// CreateDepositSession creates an authorization-mode Checkout Session
	// for the fixed deposit amount (manual capture: a hold, not a charge).
	CreateDepositSession(params *DepositSessionParams) (*stripe.CheckoutSession, error)

	// GetPaymentIntent fetches the current state of a payment intent.
	// Webhook handlers use this instead of trusting embedded session
	// payloads, which can be stale.
	GetPaymentIntent(id string) (*stripe.PaymentIntent, error)

	// CancelPaymentIntent cancels an authorization, releasing the hold.
	CancelPaymentIntent(id string) (*stripe.PaymentIntent, error)
}

// StripeClient implements the Client interface using the real Stripe SDK.
type StripeClient struct{}

// NewStripeClient creates a new Stripe client with the given API key.
func NewStripeClient(apiKey string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{}
}

// CreateDepositSession creates a manual-capture Checkout Session for the
// priority deposit.
func (c *StripeClient) CreateDepositSession(params *DepositSessionParams) (*stripe.CheckoutSession, error) {
	metadata := map[string]string{
		MetadataEmailKey: params.Email,
	}
	if params.UserInfo != "" {
		metadata[MetadataUserInfoKey] = params.UserInfo
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(params.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(params.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("VerifyHire priority deposit"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			// Authorization hold only; capture happens out of band
			CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
			Metadata:      metadata,
		},
	}

	return session.New(sessionParams)
}

// GetPaymentIntent fetches the current state of a payment intent.
func (c *StripeClient) GetPaymentIntent(id string) (*stripe.PaymentIntent, error) {
	return paymentintent.Get(id, nil)
}

// CancelPaymentIntent cancels an authorization, releasing the hold.
func (c *StripeClient) CancelPaymentIntent(id string) (*stripe.PaymentIntent, error) {
	return paymentintent.Cancel(id, nil)
}
