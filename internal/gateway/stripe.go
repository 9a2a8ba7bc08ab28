package gateway

import (
	"context"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// MetadataUserIDKey is the customer metadata key carrying the owning
// profile's id, enabling reverse lookup from the Stripe dashboard.
const MetadataUserIDKey = "supabase_user_id"

// StripeGateway implements PaymentGateway on top of a dedicated stripe-go
// client. The client is constructed per process and injected, instead of
// relying on the SDK's package-level key.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway builds a gateway around its own API client.
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, userID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Email:    stripe.String(email),
		Metadata: map[string]string{MetadataUserIDKey: userID},
	}
	params.Context = ctx
	return g.api.Customers.New(params)
}

func (g *StripeGateway) GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	return g.api.Customers.Get(customerID, params)
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:                 stripe.String(p.CustomerID),
		Mode:                     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:               stripe.String(p.SuccessURL),
		CancelURL:                stripe.String(p.CancelURL),
		PaymentMethodTypes:       stripe.StringSlice([]string{"card"}),
		AllowPromotionCodes:      stripe.Bool(true),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: p.Metadata,
	}
	params.Context = ctx
	return g.api.CheckoutSessions.New(params)
}

func (g *StripeGateway) ListCheckoutLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Context = ctx

	var items []*stripe.LineItem
	it := g.api.CheckoutSessions.ListLineItems(params)
	for it.Next() {
		items = append(items, it.LineItem())
	}
	return items, it.Err()
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	return g.api.BillingPortalSessions.New(params)
}

func (g *StripeGateway) ListSubscriptions(ctx context.Context, customerID, status string) ([]*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(status),
	}
	params.Context = ctx
	params.AddExpand("data.default_payment_method")

	var subs []*stripe.Subscription
	it := g.api.Subscriptions.List(params)
	for it.Next() {
		subs = append(subs, it.Subscription())
	}
	return subs, it.Err()
}

func (g *StripeGateway) ListInvoices(ctx context.Context, customerID string, limit int64) ([]*stripe.Invoice, error) {
	params := &stripe.InvoiceListParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)

	var invoices []*stripe.Invoice
	it := g.api.Invoices.List(params)
	for it.Next() {
		invoices = append(invoices, it.Invoice())
	}
	return invoices, it.Err()
}

func (g *StripeGateway) UpcomingInvoice(ctx context.Context, customerID string) (*stripe.Invoice, error) {
	params := &stripe.InvoiceUpcomingParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	return g.api.Invoices.Upcoming(params)
}

func (g *StripeGateway) ListCardPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx

	var methods []*stripe.PaymentMethod
	it := g.api.PaymentMethods.List(params)
	for it.Next() {
		methods = append(methods, it.PaymentMethod())
	}
	return methods, it.Err()
}

func (g *StripeGateway) VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error) {
	// Events keep the API version of the webhook endpoint they were
	// created for; a version drift must not invalidate the signature.
	return webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
