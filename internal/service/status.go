package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pictora/billing-api/internal/domain"
)

// GetSubscriptionStatus answers the hot-path entitlement question from the
// store alone. Not calling the gateway trades a small staleness window for
// low latency.
func (s *BillingService) GetSubscriptionStatus(ctx context.Context, email string) (*domain.SubscriptionStatus, error) {
	profile, err := s.profileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	// isActive means "has an account"; the profile existing is the check.
	return &domain.SubscriptionStatus{
		IsActive:  true,
		IsPremium: profile.IsPremium,
	}, nil
}

// MarkPaymentSuccess is the single place the entitlement flag is granted,
// called once the processor confirms payment. The write is an idempotent
// update keyed by email, which keeps webhook-driven retries safe.
func (s *BillingService) MarkPaymentSuccess(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: customer email is required", ErrValidation)
	}

	updated, err := s.profiles.SetPremium(ctx, email, true)
	if err != nil {
		return fmt.Errorf("%w: set premium flag: %v", ErrUpstream, err)
	}
	if !updated {
		return fmt.Errorf("%w: no profile for %s", ErrNotFound, email)
	}

	slog.Info("entitlement granted", "email", email)
	return nil
}
