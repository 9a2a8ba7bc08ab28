// Package service holds the billing reconciliation core: customer
// resolution, checkout orchestration, webhook processing and the
// entitlement projections.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pictora/billing-api/internal/config"
	"github.com/pictora/billing-api/internal/domain"
	"github.com/pictora/billing-api/internal/gateway"
	"github.com/pictora/billing-api/internal/repository"
)

// Error taxonomy. Handlers map these to HTTP status codes with errors.Is.
var (
	ErrValidation    = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("missing configuration")
	ErrVerification  = errors.New("webhook verification failed")
	ErrUpstream      = errors.New("upstream call failed")
)

// BillingService coordinates the payment gateway and the profile store.
// It keeps no state of its own; every method is an independent unit of
// work and concurrency safety is pushed to the two stores.
type BillingService struct {
	profiles repository.ProfileStore
	gateway  gateway.PaymentGateway
	cfg      config.Config
}

// NewBillingService wires the service with its injected collaborators.
func NewBillingService(profiles repository.ProfileStore, gw gateway.PaymentGateway, cfg config.Config) *BillingService {
	return &BillingService{
		profiles: profiles,
		gateway:  gw,
		cfg:      cfg,
	}
}

// profileByEmail validates the email and loads the matching profile,
// translating the store's nil result into the not-found error.
func (s *BillingService) profileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: customer email is required", ErrValidation)
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: profile lookup: %v", ErrUpstream, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: no profile for %s", ErrNotFound, email)
	}
	return profile, nil
}
