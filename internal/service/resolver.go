package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v78"
)

// ResolveCustomer maps an application email to a Stripe customer, creating
// one when no valid mapping exists, and persists the mapping conditionally
// so a customer id is never reassigned behind a concurrent resolution.
func (s *BillingService) ResolveCustomer(ctx context.Context, email string) (*stripe.Customer, error) {
	email = strings.TrimSpace(email)
	profile, err := s.profileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	storedID := profile.StripeCustomerID
	if storedID != "" {
		c, err := s.gateway.GetCustomer(ctx, storedID)
		if err == nil && !c.Deleted {
			return c, nil
		}
		// The stored id is not trusted once retrieval fails; fall
		// through to creation.
		slog.Warn("stored stripe customer is stale",
			"email", email, "customer_id", storedID, "error", err)
	}

	created, err := s.gateway.CreateCustomer(ctx, email, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: create customer: %v", ErrUpstream, err)
	}

	updated, err := s.profiles.SetStripeCustomerID(ctx, email, created.ID, storedID)
	if err != nil {
		// The customer now exists upstream without a local mapping; a
		// retried resolve will create another one, so make the
		// divergence visible instead of hiding it.
		slog.Error("stripe customer created but mapping write failed",
			"email", email, "customer_id", created.ID, "error", err)
		return nil, fmt.Errorf("%w: persist customer id: %v", ErrUpstream, err)
	}
	if !updated {
		// A concurrent resolution won the conditional write. Adopt the
		// winner's customer and leave ours for manual cleanup.
		current, rerr := s.profiles.GetByEmail(ctx, email)
		if rerr == nil && current != nil && current.StripeCustomerID != "" && current.StripeCustomerID != created.ID {
			slog.Warn("concurrent customer resolution, gateway customer orphaned",
				"email", email,
				"orphaned_customer_id", created.ID,
				"stored_customer_id", current.StripeCustomerID)
			winner, werr := s.gateway.GetCustomer(ctx, current.StripeCustomerID)
			if werr == nil && !winner.Deleted {
				return winner, nil
			}
		}
	}

	return created, nil
}
