package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"

	"github.com/pictora/billing-api/internal/domain"
)

func checkoutCompletedPayload(t *testing.T, email string) []byte {
	t.Helper()
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_123", "customer_details": {"email": %q}}}
	}`, email))
}

// parseEvent is the fake's stand-in for signature verification: it decodes
// the payload the way a verified ConstructEvent would.
func parseEvent(payload []byte) (stripe.Event, error) {
	var event stripe.Event
	err := json.Unmarshal(payload, &event)
	return event, err
}

func TestProcessWebhook_TrustGate(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid signature is rejected regardless of payload", func(t *testing.T) {
		gw := &fakeGateway{
			VerifyWebhookFn: func(payload []byte, signatureHeader string) (stripe.Event, error) {
				return stripe.Event{}, errors.New("signature mismatch")
			},
		}
		svc := NewBillingService(&fakeProfileStore{}, gw, testConfig())

		_, err := svc.ProcessWebhook(ctx, checkoutCompletedPayload(t, "x@y.com"), "t=1,v1=bad", false)

		assert.ErrorIs(t, err, ErrVerification)
	})

	t.Run("missing signature header never reaches verification", func(t *testing.T) {
		gw := &fakeGateway{}
		svc := NewBillingService(&fakeProfileStore{}, gw, testConfig())

		_, err := svc.ProcessWebhook(ctx, checkoutCompletedPayload(t, "x@y.com"), "", false)

		assert.ErrorIs(t, err, ErrVerification)
		assert.Zero(t, gw.verifyWebhookCalls)
	})

	t.Run("missing webhook secret is a configuration error", func(t *testing.T) {
		cfg := testConfig()
		cfg.StripeWebhookSecret = ""
		svc := NewBillingService(&fakeProfileStore{}, &fakeGateway{}, cfg)

		_, err := svc.ProcessWebhook(ctx, checkoutCompletedPayload(t, "x@y.com"), "t=1,v1=sig", false)

		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("internal marker bypasses signature checking", func(t *testing.T) {
		store := &fakeProfileStore{
			GetByEmailFn: func(ctx context.Context, email string) (*domain.Profile, error) {
				return profileFixture("user-1", email, "cus_1", true), nil
			},
		}
		gw := &fakeGateway{}
		svc := NewBillingService(store, gw, testConfig())

		res, err := svc.ProcessWebhook(ctx, checkoutCompletedPayload(t, "x@y.com"), "", true)

		require.NoError(t, err)
		assert.True(t, res.Received)
		assert.Zero(t, gw.verifyWebhookCalls, "trusted-internal calls skip cryptographic checks")
	})
}

func TestProcessWebhook_Verified(t *testing.T) {
	ctx := context.Background()

	verifiedGateway := func(items []*stripe.LineItem) *fakeGateway {
		return &fakeGateway{
			VerifyWebhookFn: func(payload []byte, signatureHeader string) (stripe.Event, error) {
				return parseEvent(payload)
			},
			ListCheckoutLineItemsFn: func(ctx context.Context, sessionID string) ([]*stripe.LineItem, error) {
				assert.Equal(t, "cs_123", sessionID)
				return items, nil
			},
		}
	}

	t.Run("line items containing the target product report a purchase", func(t *testing.T) {
		gw := verifiedGateway([]*stripe.LineItem{
			{Price: &stripe.Price{ID: "price_default", Product: &stripe.Product{ID: "prod_premium"}}},
		})
		svc := NewBillingService(&fakeProfileStore{}, gw, testConfig())

		res, err := svc.ProcessWebhook(ctx, checkoutCompletedPayload(t, "x@y.com"), "t=1,v1=ok", false)

		require.NoError(t, err)
		assert.True(t, res.Received)
		assert.True(t, res.HasPurchasedTargetProduct)
	})

	t.Run("a different product reports no purchase", func(t *testing.T) {
		gw := verifiedGateway([]*stripe.LineItem{
			{Price: &stripe.Price{ID: "price_other", Product: &stripe.Product{ID: "prod_other"}}},
		})
		svc := NewBillingService(&fakeProfileStore{}, gw, testConfig())

		res, err := svc.ProcessWebhook(ctx, checkoutCompletedPayload(t, "x@y.com"), "t=1,v1=ok", false)

		require.NoError(t, err)
		assert.True(t, res.Received)
		assert.False(t, res.HasPurchasedTargetProduct)
	})

	t.Run("other event types are acknowledged and ignored", func(t *testing.T) {
		gw := &fakeGateway{
			VerifyWebhookFn: func(payload []byte, signatureHeader string) (stripe.Event, error) {
				return parseEvent(payload)
			},
		}
		svc := NewBillingService(&fakeProfileStore{}, gw, testConfig())

		payload := []byte(`{"id":"evt_2","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`)
		res, err := svc.ProcessWebhook(ctx, payload, "t=1,v1=ok", false)

		require.NoError(t, err)
		assert.True(t, res.Received, "acknowledgment is mandatory so Stripe stops retrying")
		assert.False(t, res.HasPurchasedTargetProduct)
	})

	t.Run("missing email is malformed upstream data", func(t *testing.T) {
		gw := &fakeGateway{
			VerifyWebhookFn: func(payload []byte, signatureHeader string) (stripe.Event, error) {
				return parseEvent(payload)
			},
		}
		svc := NewBillingService(&fakeProfileStore{}, gw, testConfig())

		payload := []byte(`{"id":"evt_3","type":"checkout.session.completed","data":{"object":{"id":"cs_123"}}}`)
		_, err := svc.ProcessWebhook(ctx, payload, "t=1,v1=ok", false)

		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("line item lookup failure is an upstream error", func(t *testing.T) {
		gw := &fakeGateway{
			VerifyWebhookFn: func(payload []byte, signatureHeader string) (stripe.Event, error) {
				return parseEvent(payload)
			},
			ListCheckoutLineItemsFn: func(ctx context.Context, sessionID string) ([]*stripe.LineItem, error) {
				return nil, errors.New("stripe is down")
			},
		}
		svc := NewBillingService(&fakeProfileStore{}, gw, testConfig())

		_, err := svc.ProcessWebhook(ctx, checkoutCompletedPayload(t, "x@y.com"), "t=1,v1=ok", false)

		assert.ErrorIs(t, err, ErrUpstream)
	})
}

func TestProcessWebhook_TrustedInternal(t *testing.T) {
	ctx := context.Background()

	t.Run("re-assertion mirrors the stored flag and never grants", func(t *testing.T) {
		for _, premium := range []bool{true, false} {
			store := &fakeProfileStore{
				GetByEmailFn: func(ctx context.Context, email string) (*domain.Profile, error) {
					return profileFixture("user-1", email, "cus_1", premium), nil
				},
			}
			gw := &fakeGateway{
				ListCheckoutLineItemsFn: func(ctx context.Context, sessionID string) ([]*stripe.LineItem, error) {
					t.Fatal("internal calls must not run the purchase check")
					return nil, nil
				},
			}
			svc := NewBillingService(store, gw, testConfig())

			res, err := svc.ProcessWebhook(ctx, checkoutCompletedPayload(t, "x@y.com"), "", true)

			require.NoError(t, err)
			assert.Equal(t, premium, res.HasPurchasedTargetProduct)
		}
	})

	t.Run("unknown profile is not found", func(t *testing.T) {
		svc := NewBillingService(&fakeProfileStore{}, &fakeGateway{}, testConfig())

		_, err := svc.ProcessWebhook(ctx, checkoutCompletedPayload(t, "nobody@user.com"), "", true)

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("malformed internal payload fails validation", func(t *testing.T) {
		svc := NewBillingService(&fakeProfileStore{}, &fakeGateway{}, testConfig())

		_, err := svc.ProcessWebhook(ctx, []byte("{not json"), "", true)

		assert.ErrorIs(t, err, ErrValidation)
	})
}
