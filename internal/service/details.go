package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v78"

	"github.com/pictora/billing-api/internal/domain"
)

const recentInvoiceLimit = 10

// GetCustomerDetails assembles the customer's billing state into one
// flattened view. Customer, payment methods, invoices and subscriptions are
// required; the upcoming invoice is optional and a failed preview is
// reported as none.
func (s *BillingService) GetCustomerDetails(ctx context.Context, email string) (*domain.CustomerDetails, error) {
	profile, err := s.profileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if profile.StripeCustomerID == "" {
		return nil, fmt.Errorf("%w: no billing customer for %s", ErrNotFound, profile.Email)
	}
	customerID := profile.StripeCustomerID

	cust, err := s.gateway.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("%w: get customer: %v", ErrUpstream, err)
	}

	methods, err := s.gateway.ListCardPaymentMethods(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list payment methods: %v", ErrUpstream, err)
	}

	invoices, err := s.gateway.ListInvoices(ctx, customerID, recentInvoiceLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: list invoices: %v", ErrUpstream, err)
	}

	var upcoming *domain.InvoiceSummary
	if inv, uerr := s.gateway.UpcomingInvoice(ctx, customerID); uerr != nil {
		// Customers without a renewal simply have no upcoming invoice.
		slog.Info("no upcoming invoice", "customer_id", customerID, "reason", uerr)
	} else if inv != nil {
		v := invoiceSummary(inv)
		upcoming = &v
	}

	subs, err := s.gateway.ListSubscriptions(ctx, customerID, "active")
	if err != nil {
		return nil, fmt.Errorf("%w: list subscriptions: %v", ErrUpstream, err)
	}

	details := &domain.CustomerDetails{
		Customer: domain.CustomerSummary{
			ID:    cust.ID,
			Email: cust.Email,
			Name:  cust.Name,
		},
		PaymentMethods:  make([]domain.PaymentMethodInfo, 0, len(methods)),
		Invoices:        make([]domain.InvoiceSummary, 0, len(invoices)),
		UpcomingInvoice: upcoming,
		Subscriptions:   make([]domain.SubscriptionDetail, 0, len(subs)),
	}
	for _, pm := range methods {
		details.PaymentMethods = append(details.PaymentMethods, paymentMethodInfo(pm))
	}
	for _, inv := range invoices {
		details.Invoices = append(details.Invoices, invoiceSummary(inv))
	}
	for _, sub := range subs {
		details.Subscriptions = append(details.Subscriptions, subscriptionDetail(sub))
	}
	return details, nil
}

func paymentMethodInfo(pm *stripe.PaymentMethod) domain.PaymentMethodInfo {
	info := domain.PaymentMethodInfo{ID: pm.ID}
	if pm.Card != nil {
		info.Brand = string(pm.Card.Brand)
		info.Last4 = pm.Card.Last4
		info.ExpMonth = pm.Card.ExpMonth
		info.ExpYear = pm.Card.ExpYear
	}
	return info
}

func invoiceSummary(inv *stripe.Invoice) domain.InvoiceSummary {
	return domain.InvoiceSummary{
		ID:               inv.ID,
		Status:           string(inv.Status),
		AmountDue:        inv.AmountDue,
		AmountPaid:       inv.AmountPaid,
		Currency:         string(inv.Currency),
		Created:          inv.Created,
		HostedInvoiceURL: inv.HostedInvoiceURL,
	}
}

func subscriptionDetail(sub *stripe.Subscription) domain.SubscriptionDetail {
	d := domain.SubscriptionDetail{
		ID:                 sub.ID,
		Status:             string(sub.Status),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}
	if sub.DefaultPaymentMethod != nil {
		info := paymentMethodInfo(sub.DefaultPaymentMethod)
		d.DefaultPayment = &info
	}
	return d
}
