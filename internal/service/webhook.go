package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v78"
)

// eventTrust is the trust classification of an inbound event. It is a
// closed set: every event lands in exactly one variant before any billing
// logic runs, and the two accepted variants never share a code path for
// deriving entitlement.
type eventTrust int

const (
	trustRejected eventTrust = iota
	trustVerified
	trustInternal
)

// WebhookResult is what the webhook endpoint reports back to the caller.
// Processing a genuine purchase event detects the purchase but does not
// write the entitlement flag; that write belongs to MarkPaymentSuccess.
type WebhookResult struct {
	Received                  bool   `json:"received"`
	HasPurchasedTargetProduct bool   `json:"hasPurchasedTargetProduct"`
	Message                   string `json:"message"`
}

// ProcessWebhook classifies the event's trust, then dispatches. Verified
// events are checked against the checkout session's line items;
// trusted-internal calls re-assert the stored entitlement flag instead.
// Repeated delivery of the same event is safe: both paths are read-only.
func (s *BillingService) ProcessWebhook(ctx context.Context, payload []byte, signatureHeader string, internalCall bool) (*WebhookResult, error) {
	trust, event, err := s.classifyEvent(payload, signatureHeader, internalCall)
	if err != nil {
		return nil, err
	}

	switch trust {
	case trustVerified:
		return s.detectPurchase(ctx, event)
	case trustInternal:
		return s.reassertEntitlement(ctx, event)
	case trustRejected:
		return nil, fmt.Errorf("%w: event rejected", ErrVerification)
	default:
		return nil, fmt.Errorf("%w: unknown trust class", ErrVerification)
	}
}

// classifyEvent is the trust gate. An internal marker bypasses the
// cryptographic check entirely; everything else must carry a valid
// signature over the raw payload.
func (s *BillingService) classifyEvent(payload []byte, signatureHeader string, internalCall bool) (eventTrust, stripe.Event, error) {
	if internalCall {
		var event stripe.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return trustRejected, stripe.Event{}, fmt.Errorf("%w: malformed internal event payload", ErrValidation)
		}
		return trustInternal, event, nil
	}

	if s.cfg.StripeWebhookSecret == "" {
		return trustRejected, stripe.Event{}, fmt.Errorf("%w: webhook signing secret is not set", ErrConfiguration)
	}
	if signatureHeader == "" {
		return trustRejected, stripe.Event{}, fmt.Errorf("%w: missing signature header", ErrVerification)
	}

	event, err := s.gateway.VerifyWebhook(payload, signatureHeader)
	if err != nil {
		slog.Error("webhook signature verification failed", "error", err)
		return trustRejected, stripe.Event{}, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	return trustVerified, event, nil
}

// detectPurchase handles a signature-verified event. Only completed
// checkout sessions drive billing logic; every other type is acknowledged
// so Stripe stops retrying it.
func (s *BillingService) detectPurchase(ctx context.Context, event stripe.Event) (*WebhookResult, error) {
	if event.Type != "checkout.session.completed" {
		slog.Info("stripe event acknowledged without action", "event_type", string(event.Type))
		return &WebhookResult{
			Received: true,
			Message:  fmt.Sprintf("event type %s acknowledged", string(event.Type)),
		}, nil
	}

	sess, err := sessionFromEvent(event)
	if err != nil {
		return nil, err
	}
	email := sessionEmail(sess)
	if email == "" {
		return nil, fmt.Errorf("%w: event payload carries no customer email", ErrValidation)
	}

	// The line items are the authoritative purchase check; the stored
	// entitlement flag is deliberately not consulted here.
	items, err := s.gateway.ListCheckoutLineItems(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: list checkout line items: %v", ErrUpstream, err)
	}

	purchased := false
	for _, li := range items {
		if li.Price != nil && li.Price.Product != nil && li.Price.Product.ID == s.cfg.StripeTargetProductID {
			purchased = true
			break
		}
	}

	msg := fmt.Sprintf("checkout completed for %s, target product not purchased", email)
	if purchased {
		msg = fmt.Sprintf("checkout completed for %s, target product purchased", email)
	}
	slog.Info("checkout session processed",
		"email", email, "session_id", sess.ID, "purchased_target_product", purchased)

	return &WebhookResult{Received: true, HasPurchasedTargetProduct: purchased, Message: msg}, nil
}

// reassertEntitlement handles a trusted-internal call: a status re-check,
// not a purchase event. It reports the stored flag and must never grant
// entitlement on its own.
func (s *BillingService) reassertEntitlement(ctx context.Context, event stripe.Event) (*WebhookResult, error) {
	sess, err := sessionFromEvent(event)
	if err != nil {
		return nil, err
	}
	email := sessionEmail(sess)
	if email == "" {
		return nil, fmt.Errorf("%w: event payload carries no customer email", ErrValidation)
	}

	profile, err := s.profileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return &WebhookResult{
		Received:                  true,
		HasPurchasedTargetProduct: profile.IsPremium,
		Message:                   fmt.Sprintf("entitlement re-asserted for %s", email),
	}, nil
}

func sessionFromEvent(event stripe.Event) (stripe.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if event.Data == nil {
		return sess, fmt.Errorf("%w: event carries no data object", ErrValidation)
	}
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return sess, fmt.Errorf("%w: malformed checkout session payload", ErrValidation)
	}
	return sess, nil
}

func sessionEmail(sess stripe.CheckoutSession) string {
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		return sess.CustomerDetails.Email
	}
	if sess.CustomerEmail != "" {
		return sess.CustomerEmail
	}
	return sess.Metadata[sessionMetadataEmailKey]
}
