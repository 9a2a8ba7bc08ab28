package service

import (
	"context"

	"github.com/stripe/stripe-go/v78"

	"github.com/pictora/billing-api/internal/config"
	"github.com/pictora/billing-api/internal/domain"
	"github.com/pictora/billing-api/internal/gateway"
)

// Function-field fakes: each test sets only the calls it cares about;
// everything else returns zero values.

type fakeProfileStore struct {
	CreateFn              func(ctx context.Context, profile domain.Profile) (string, error)
	GetByEmailFn          func(ctx context.Context, email string) (*domain.Profile, error)
	GetByIDFn             func(ctx context.Context, id string) (*domain.Profile, error)
	SetStripeCustomerIDFn func(ctx context.Context, email, customerID, previousID string) (bool, error)
	SetPremiumFn          func(ctx context.Context, email string, premium bool) (bool, error)
}

func (f *fakeProfileStore) Create(ctx context.Context, profile domain.Profile) (string, error) {
	if f.CreateFn == nil {
		return "", nil
	}
	return f.CreateFn(ctx, profile)
}

func (f *fakeProfileStore) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	if f.GetByEmailFn == nil {
		return nil, nil
	}
	return f.GetByEmailFn(ctx, email)
}

func (f *fakeProfileStore) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	if f.GetByIDFn == nil {
		return nil, nil
	}
	return f.GetByIDFn(ctx, id)
}

func (f *fakeProfileStore) SetStripeCustomerID(ctx context.Context, email, customerID, previousID string) (bool, error) {
	if f.SetStripeCustomerIDFn == nil {
		return true, nil
	}
	return f.SetStripeCustomerIDFn(ctx, email, customerID, previousID)
}

func (f *fakeProfileStore) SetPremium(ctx context.Context, email string, premium bool) (bool, error) {
	if f.SetPremiumFn == nil {
		return true, nil
	}
	return f.SetPremiumFn(ctx, email, premium)
}

type fakeGateway struct {
	CreateCustomerFn         func(ctx context.Context, email, userID string) (*stripe.Customer, error)
	GetCustomerFn            func(ctx context.Context, customerID string) (*stripe.Customer, error)
	CreateCheckoutSessionFn  func(ctx context.Context, params gateway.CheckoutParams) (*stripe.CheckoutSession, error)
	ListCheckoutLineItemsFn  func(ctx context.Context, sessionID string) ([]*stripe.LineItem, error)
	CreatePortalSessionFn    func(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error)
	ListSubscriptionsFn      func(ctx context.Context, customerID, status string) ([]*stripe.Subscription, error)
	ListInvoicesFn           func(ctx context.Context, customerID string, limit int64) ([]*stripe.Invoice, error)
	UpcomingInvoiceFn        func(ctx context.Context, customerID string) (*stripe.Invoice, error)
	ListCardPaymentMethodsFn func(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error)
	VerifyWebhookFn          func(payload []byte, signatureHeader string) (stripe.Event, error)

	createCustomerCalls int
	verifyWebhookCalls  int
}

func (f *fakeGateway) CreateCustomer(ctx context.Context, email, userID string) (*stripe.Customer, error) {
	f.createCustomerCalls++
	if f.CreateCustomerFn == nil {
		return &stripe.Customer{ID: "cus_fake", Email: email}, nil
	}
	return f.CreateCustomerFn(ctx, email, userID)
}

func (f *fakeGateway) GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error) {
	if f.GetCustomerFn == nil {
		return &stripe.Customer{ID: customerID}, nil
	}
	return f.GetCustomerFn(ctx, customerID)
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, params gateway.CheckoutParams) (*stripe.CheckoutSession, error) {
	if f.CreateCheckoutSessionFn == nil {
		return &stripe.CheckoutSession{ID: "cs_fake"}, nil
	}
	return f.CreateCheckoutSessionFn(ctx, params)
}

func (f *fakeGateway) ListCheckoutLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error) {
	if f.ListCheckoutLineItemsFn == nil {
		return nil, nil
	}
	return f.ListCheckoutLineItemsFn(ctx, sessionID)
}

func (f *fakeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	if f.CreatePortalSessionFn == nil {
		return &stripe.BillingPortalSession{URL: "https://billing.stripe.com/session/fake"}, nil
	}
	return f.CreatePortalSessionFn(ctx, customerID, returnURL)
}

func (f *fakeGateway) ListSubscriptions(ctx context.Context, customerID, status string) ([]*stripe.Subscription, error) {
	if f.ListSubscriptionsFn == nil {
		return nil, nil
	}
	return f.ListSubscriptionsFn(ctx, customerID, status)
}

func (f *fakeGateway) ListInvoices(ctx context.Context, customerID string, limit int64) ([]*stripe.Invoice, error) {
	if f.ListInvoicesFn == nil {
		return nil, nil
	}
	return f.ListInvoicesFn(ctx, customerID, limit)
}

func (f *fakeGateway) UpcomingInvoice(ctx context.Context, customerID string) (*stripe.Invoice, error) {
	if f.UpcomingInvoiceFn == nil {
		return nil, nil
	}
	return f.UpcomingInvoiceFn(ctx, customerID)
}

func (f *fakeGateway) ListCardPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error) {
	if f.ListCardPaymentMethodsFn == nil {
		return nil, nil
	}
	return f.ListCardPaymentMethodsFn(ctx, customerID)
}

func (f *fakeGateway) VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error) {
	f.verifyWebhookCalls++
	if f.VerifyWebhookFn == nil {
		return stripe.Event{}, nil
	}
	return f.VerifyWebhookFn(payload, signatureHeader)
}

func testConfig() config.Config {
	return config.Config{
		Env:                   "test",
		StripeSecretKey:       "sk_test_key",
		StripeWebhookSecret:   "whsec_test",
		StripePriceID:         "price_default",
		StripeTargetProductID: "prod_premium",
		DatabasePath:          ":memory:",
		FrontendBaseURL:       "http://localhost:3000",
		ListenAddr:            ":8080",
	}
}

func profileFixture(id, email, customerID string, premium bool) *domain.Profile {
	return &domain.Profile{
		ID:               id,
		Email:            email,
		StripeCustomerID: customerID,
		IsPremium:        premium,
	}
}
