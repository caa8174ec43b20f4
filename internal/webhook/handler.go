package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cart-service/internal/models"
	"cart-service/internal/util"

	stripewebhook "github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// SignatureHeader carries the provider signature of the raw body
const SignatureHeader = "Stripe-Signature"

const rejectedBody = "Bad things happened"

// ErrVerification is returned when the payload signature does not check out
var ErrVerification = errors.New("webhook signature verification failed")

// Fulfiller handles completed checkouts. It must be idempotent per eventID
// and returns the session status to echo back.
type Fulfiller interface {
	HandleCheckoutCompleted(ctx context.Context, eventID string, session *models.CheckoutSession) (string, error)
}

// Handler verifies and dispatches provider webhooks. It keeps no state
// between requests.
type Handler struct {
	fulfiller Fulfiller
	tolerance time.Duration
	logger    *zap.Logger
}

// NewHandler creates a webhook handler. A zero tolerance uses the provider default.
func NewHandler(fulfiller Fulfiller, tolerance time.Duration) *Handler {
	if tolerance <= 0 {
		tolerance = stripewebhook.DefaultTolerance
	}
	return &Handler{
		fulfiller: fulfiller,
		tolerance: tolerance,
		logger:    util.Named("webhook"),
	}
}

// Verify checks the signature header against payload and secret
func (h *Handler) Verify(payload []byte, signatureHeader, secret string) error {
	if secret == "" || signatureHeader == "" {
		return ErrVerification
	}
	if err := stripewebhook.ValidatePayloadWithTolerance(payload, signatureHeader, secret, h.tolerance); err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	return nil
}

// HandleWebhook runs verify, parse and dispatch for one delivery and
// returns the HTTP status and plaintext body to send. Only 200 and 400
// are ever returned.
func (h *Handler) HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader, secret string) (status int, body string) {
	ctx, span := util.StartSpan(ctx, "Webhook.Handle")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Webhook dispatch panicked", zap.Any("panic", r))
			util.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
			status, body = http.StatusBadRequest, rejectedBody
		}
	}()

	if err := h.Verify(rawBody, signatureHeader, secret); err != nil {
		util.WebhookEventsTotal.WithLabelValues("unverified", "rejected").Inc()
		h.logger.Warn("Rejected webhook with invalid signature", zap.Int("payload_bytes", len(rawBody)))
		return http.StatusBadRequest, rejectedBody
	}

	event, err := ParseEvent(rawBody)
	if err != nil {
		util.FailSpan(span, err)
		util.WebhookEventsTotal.WithLabelValues("malformed", "rejected").Inc()
		h.logger.Warn("Rejected verified webhook with malformed payload", zap.Error(err))
		return http.StatusBadRequest, rejectedBody
	}

	return h.dispatch(ctx, event)
}

func (h *Handler) dispatch(ctx context.Context, event Event) (int, string) {
	switch ev := event.(type) {
	case *CheckoutSessionCompleted:
		status, err := h.fulfiller.HandleCheckoutCompleted(ctx, ev.ID, &ev.Session)
		if err != nil {
			util.WebhookEventsTotal.WithLabelValues(ev.EventType(), "rejected").Inc()
			h.logger.Error("Checkout fulfillment failed",
				zap.String("event_id", ev.ID),
				zap.String("session_id", ev.Session.ID),
				zap.Error(err))
			return http.StatusBadRequest, rejectedBody
		}

		util.WebhookEventsTotal.WithLabelValues(ev.EventType(), "acknowledged").Inc()
		return http.StatusOK, fmt.Sprintf("Checkout status => %s", status)

	case *Unrecognized:
		util.WebhookEventsTotal.WithLabelValues("unrecognized", "acknowledged").Inc()
		h.logger.Debug("Acknowledged unhandled webhook",
			zap.String("event_id", ev.ID),
			zap.String("type", ev.Type))
		return http.StatusOK, ""
	}

	util.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
	return http.StatusBadRequest, rejectedBody
}
