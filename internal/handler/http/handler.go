package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pictora/billing-api/internal/domain"
	"github.com/pictora/billing-api/internal/service"
)

// BillingService is what the handler needs from the service layer. The
// handler depends on this interface, not the concrete service, so tests can
// swap in a mock.
type BillingService interface {
	CreateCheckoutSession(ctx context.Context, email, priceID string) (string, error)
	CreatePortalSession(ctx context.Context, email string) (string, error)
	GetCustomerDetails(ctx context.Context, email string) (*domain.CustomerDetails, error)
	GetSubscriptionStatus(ctx context.Context, email string) (*domain.SubscriptionStatus, error)
	MarkPaymentSuccess(ctx context.Context, email string) error
	ProcessWebhook(ctx context.Context, payload []byte, signatureHeader string, internalCall bool) (*service.WebhookResult, error)
}

// internalCallHeader marks a same-system re-check that bypasses webhook
// signature verification. The route must sit behind the internal trust
// boundary for this to be safe.
const internalCallHeader = "X-Internal-Call"

type billingRequest struct {
	CustomerEmail string `json:"customerEmail"`
	PriceID       string `json:"priceId,omitempty"`
}

// BillingHandler serves the /billing routes.
type BillingHandler struct {
	service BillingService
}

func NewBillingHandler(s BillingService) *BillingHandler {
	return &BillingHandler{service: s}
}

// Routes returns the billing sub-router. Everything takes a JSON body with
// the customer's email; reads are POSTs as well so the email never lands in
// access logs as a query parameter.
func (h *BillingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/checkout-session", h.CreateCheckoutSession)
	r.Post("/portal-session", h.CreatePortalSession)
	r.Post("/customer-details", h.GetCustomerDetails)
	r.Post("/subscription-status", h.GetSubscriptionStatus)
	r.Post("/payment-success", h.PaymentSuccess)

	return r
}

// @Summary      Create a checkout session
// @Description  Creates a Stripe checkout session for the given customer email, reusing an existing customer where possible
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        request  body      billingRequest  true  "Customer email and optional price id"
// @Success      200      {object}  map[string]string
// @Failure      400      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /billing/checkout-session [post]
func (h *BillingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBillingRequest(w, r)
	if !ok {
		return
	}

	sessionID, err := h.service.CreateCheckoutSession(r.Context(), req.CustomerEmail, req.PriceID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"sessionId": sessionID})
}

// @Summary      Create a billing portal session
// @Description  Returns a Stripe billing portal URL for an existing billing customer
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        request  body      billingRequest  true  "Customer email"
// @Success      200      {object}  map[string]string
// @Failure      400      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /billing/portal-session [post]
func (h *BillingHandler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBillingRequest(w, r)
	if !ok {
		return
	}

	url, err := h.service.CreatePortalSession(r.Context(), req.CustomerEmail)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"url": url})
}

// @Summary      Get customer billing details
// @Description  Aggregates payment methods, invoices, the upcoming invoice and active subscriptions into one view
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        request  body      billingRequest  true  "Customer email"
// @Success      200      {object}  domain.CustomerDetails
// @Failure      400      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /billing/customer-details [post]
func (h *BillingHandler) GetCustomerDetails(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBillingRequest(w, r)
	if !ok {
		return
	}

	details, err := h.service.GetCustomerDetails(r.Context(), req.CustomerEmail)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, details)
}

// @Summary      Get subscription status
// @Description  Store-only projection of the account's entitlement state
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        request  body      billingRequest  true  "Customer email"
// @Success      200      {object}  domain.SubscriptionStatus
// @Failure      400      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /billing/subscription-status [post]
func (h *BillingHandler) GetSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBillingRequest(w, r)
	if !ok {
		return
	}

	status, err := h.service.GetSubscriptionStatus(r.Context(), req.CustomerEmail)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

// @Summary      Record a successful payment
// @Description  Grants the premium entitlement once the processor confirms payment; idempotent
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        request  body      billingRequest  true  "Customer email"
// @Success      200      {object}  map[string]bool
// @Failure      400      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /billing/payment-success [post]
func (h *BillingHandler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBillingRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.MarkPaymentSuccess(r.Context(), req.CustomerEmail); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// WebhookHandler receives Stripe events. It is a separate handler because
// the webhook route reads the raw body (the signature covers the exact
// bytes) and must never go through the JSON decoding the other routes use.
type WebhookHandler struct {
	service BillingService
}

func NewWebhookHandler(s BillingService) *WebhookHandler {
	return &WebhookHandler{service: s}
}

// @Summary      Ingest a webhook event
// @Description  Verifies the event signature (or an internal trust marker) and reports whether the target product was purchased
// @Tags         webhook
// @Accept       json
// @Produce      json
// @Success      200  {object}  service.WebhookResult
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /webhook [post]
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read webhook body", "error", err)
		respondWithError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	internalCall := r.Header.Get(internalCallHeader) == "true"

	result, err := h.service.ProcessWebhook(r.Context(), payload, signature, internalCall)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// --- helpers ---

func decodeBillingRequest(w http.ResponseWriter, r *http.Request) (billingRequest, bool) {
	var req billingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

// respondWithServiceError maps the service error taxonomy onto HTTP status
// codes. The wrapped message is passed through; the service only wraps
// caller-safe text.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrVerification):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrConfiguration):
		respondWithError(w, http.StatusInternalServerError, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	slog.Error("request failed", "code", code, "message", message)
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
