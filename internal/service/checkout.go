package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v78"

	"github.com/pictora/billing-api/internal/gateway"
)

// sessionMetadataEmailKey correlates a checkout session back to the
// application account when the webhook arrives.
const sessionMetadataEmailKey = "customer_email"

// CreateCheckoutSession returns the id of a hosted checkout session for the
// given email. An existing customer with an active subscription is reused
// directly, so a paying customer can start a new subscription line item
// without a duplicate customer being created.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, email, priceID string) (string, error) {
	email = strings.TrimSpace(email)
	if priceID == "" {
		priceID = s.cfg.StripePriceID
	}

	profile, err := s.profileByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	if profile.StripeCustomerID != "" {
		c, cerr := s.gateway.GetCustomer(ctx, profile.StripeCustomerID)
		if cerr == nil && !c.Deleted {
			subs, serr := s.gateway.ListSubscriptions(ctx, c.ID, "all")
			if serr != nil {
				return "", fmt.Errorf("%w: list subscriptions: %v", ErrUpstream, serr)
			}
			for _, sub := range subs {
				if sub.Status == stripe.SubscriptionStatusActive {
					return s.newCheckoutSession(ctx, c.ID, priceID, email, profile.ID)
				}
			}
		} else {
			slog.Warn("stored stripe customer not usable for checkout",
				"email", email, "customer_id", profile.StripeCustomerID, "error", cerr)
		}
	}

	// No usable customer or no active subscription: resolve (and
	// possibly create) the customer first.
	c, err := s.ResolveCustomer(ctx, email)
	if err != nil {
		return "", err
	}
	return s.newCheckoutSession(ctx, c.ID, priceID, email, profile.ID)
}

func (s *BillingService) newCheckoutSession(ctx context.Context, customerID, priceID, email, userID string) (string, error) {
	sess, err := s.gateway.CreateCheckoutSession(ctx, gateway.CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: s.cfg.SuccessURL(),
		CancelURL:  s.cfg.CancelURL(),
		Metadata: map[string]string{
			sessionMetadataEmailKey:   email,
			gateway.MetadataUserIDKey: userID,
		},
	})
	if err != nil {
		slog.Error("stripe checkout session creation failed", "email", email, "error", err)
		return "", fmt.Errorf("%w: create checkout session: %v", ErrUpstream, err)
	}
	return sess.ID, nil
}

// CreatePortalSession returns a billing-portal URL for an existing billing
// customer. A profile without a customer id has nothing to manage yet.
func (s *BillingService) CreatePortalSession(ctx context.Context, email string) (string, error) {
	profile, err := s.profileByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if profile.StripeCustomerID == "" {
		return "", fmt.Errorf("%w: no billing customer for %s", ErrNotFound, profile.Email)
	}

	ps, err := s.gateway.CreatePortalSession(ctx, profile.StripeCustomerID, s.cfg.PortalReturnURL())
	if err != nil {
		return "", fmt.Errorf("%w: create portal session: %v", ErrUpstream, err)
	}
	return ps.URL, nil
}
