// Package gateway wraps the payment processor's API behind a narrow
// interface so the billing core can be exercised with fakes.
package gateway

import (
	"context"

	"github.com/stripe/stripe-go/v78"
)

// CheckoutParams carries everything needed to build a hosted checkout
// session. Metadata is attached verbatim for later webhook correlation.
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// PaymentGateway is the processor-side surface of the billing core. All
// calls are blocking round trips; there is no retry layer here.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, email, userID string) (*stripe.Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error)

	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*stripe.CheckoutSession, error)
	ListCheckoutLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error)

	// ListSubscriptions lists a customer's subscriptions filtered by
	// status ("all" for every status), with the default payment method
	// expanded.
	ListSubscriptions(ctx context.Context, customerID, status string) ([]*stripe.Subscription, error)
	ListInvoices(ctx context.Context, customerID string, limit int64) ([]*stripe.Invoice, error)
	// UpcomingInvoice previews the customer's next invoice. Callers may
	// treat a failure here as "no upcoming invoice".
	UpcomingInvoice(ctx context.Context, customerID string) (*stripe.Invoice, error)
	ListCardPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error)

	// VerifyWebhook checks the payload's signature against the configured
	// signing secret and returns the decoded event.
	VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error)
}
