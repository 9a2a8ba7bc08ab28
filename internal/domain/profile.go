package domain

// Profile is the application-side user record. It is created at signup by
// the auth system; this service only owns the billing linkage fields.
type Profile struct {
	// ID is the auth provider's user id (a UUID), assigned at signup.
	ID    string `json:"id"`
	Email string `json:"email"`

	// StripeCustomerID links the profile to the payment processor.
	// Once set it is never reassigned to a different profile.
	StripeCustomerID string `json:"-"`

	// IsPremium is the derived entitlement flag the rest of the
	// application reads. It is eventually consistent with the
	// processor's subscription state.
	IsPremium bool `json:"is_premium"`

	AIGenerationsCount int `json:"ai_generations_count"`
}

// SubscriptionStatus is the cheap store-only projection returned to the
// client on the hot path.
type SubscriptionStatus struct {
	IsActive  bool `json:"isActive"`
	IsPremium bool `json:"isPremium"`
}

// CustomerDetails is a flattened projection of the customer's billing
// state. Raw gateway objects never cross this boundary so upstream schema
// changes stay contained in the gateway adapter.
type CustomerDetails struct {
	Customer        CustomerSummary      `json:"customer"`
	PaymentMethods  []PaymentMethodInfo  `json:"paymentMethods"`
	Invoices        []InvoiceSummary     `json:"invoices"`
	UpcomingInvoice *InvoiceSummary      `json:"upcomingInvoice"`
	Subscriptions   []SubscriptionDetail `json:"subscriptions"`
}

type CustomerSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type PaymentMethodInfo struct {
	ID       string `json:"id"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"expMonth"`
	ExpYear  int64  `json:"expYear"`
}

type InvoiceSummary struct {
	ID               string `json:"id,omitempty"`
	Status           string `json:"status,omitempty"`
	AmountDue        int64  `json:"amountDue"`
	AmountPaid       int64  `json:"amountPaid"`
	Currency         string `json:"currency"`
	Created          int64  `json:"created"`
	HostedInvoiceURL string `json:"hostedInvoiceUrl,omitempty"`
}

type SubscriptionDetail struct {
	ID                 string             `json:"id"`
	Status             string             `json:"status"`
	CurrentPeriodStart int64              `json:"currentPeriodStart"`
	CurrentPeriodEnd   int64              `json:"currentPeriodEnd"`
	CancelAtPeriodEnd  bool               `json:"cancelAtPeriodEnd"`
	DefaultPayment     *PaymentMethodInfo `json:"defaultPaymentMethod,omitempty"`
}
