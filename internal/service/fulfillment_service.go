package service

import (
	"context"
	"fmt"
	"time"

	"cart-service/internal/models"
	"cart-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const eventTypeCheckoutSessionCompleted = "checkout.session.completed"

// FulfillmentLedger persists checkout sessions and processed webhook deliveries
type FulfillmentLedger interface {
	GetProcessedEvent(ctx context.Context, eventID string) (*models.ProcessedEvent, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType, outcome string) error
	UpsertCheckoutSession(ctx context.Context, cs *models.CheckoutSession) error
	MarkCheckoutFulfilled(ctx context.Context, id string) error
}

// IdempotencyClaimer guards concurrent deliveries of the same event
type IdempotencyClaimer interface {
	ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// CheckoutEventPublisher publishes fulfillment events
type CheckoutEventPublisher interface {
	PublishCheckoutCompleted(ctx context.Context, event *models.CheckoutCompletedEvent) error
}

// FulfillmentService turns completed checkouts into fulfillment work
type FulfillmentService struct {
	ledger    FulfillmentLedger
	claimer   IdempotencyClaimer
	publisher CheckoutEventPublisher
	claimTTL  time.Duration
	logger    *zap.Logger
}

// NewFulfillmentService creates a new fulfillment service
func NewFulfillmentService(
	ledger FulfillmentLedger,
	claimer IdempotencyClaimer,
	publisher CheckoutEventPublisher,
	claimTTL time.Duration,
) *FulfillmentService {
	if claimTTL <= 0 {
		claimTTL = 24 * time.Hour
	}
	return &FulfillmentService{
		ledger:    ledger,
		claimer:   claimer,
		publisher: publisher,
		claimTTL:  claimTTL,
		logger:    util.Named("fulfillment"),
	}
}

// HandleCheckoutCompleted records the session and publishes a
// CheckoutCompleted event at most once per provider event id. Redelivery
// of a processed event returns the recorded status with no side effects.
func (s *FulfillmentService) HandleCheckoutCompleted(ctx context.Context, eventID string, session *models.CheckoutSession) (string, error) {
	ctx, span := util.StartSpan(ctx, "FulfillmentService.HandleCheckoutCompleted")
	defer span.End()

	processed, err := s.ledger.GetProcessedEvent(ctx, eventID)
	if err != nil {
		return "", fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed != nil {
		util.FulfillmentsTotal.WithLabelValues("duplicate").Inc()
		s.logger.Info("Event already processed", zap.String("event_id", eventID))
		return processed.Outcome, nil
	}

	claimKey := "webhook:" + eventID
	claimed, err := s.claimer.ClaimIdempotencyKey(ctx, claimKey, s.claimTTL)
	if err != nil {
		return "", fmt.Errorf("failed to claim event: %w", err)
	}
	if !claimed {
		util.FulfillmentsTotal.WithLabelValues("in_flight").Inc()
		s.logger.Info("Event is being processed by another delivery", zap.String("event_id", eventID))
		return session.Status, nil
	}

	if err := s.fulfill(ctx, eventID, session); err != nil {
		util.FailSpan(span, err)
		util.FulfillmentsTotal.WithLabelValues("failed").Inc()
		if rerr := s.claimer.ReleaseIdempotencyKey(ctx, claimKey); rerr != nil {
			s.logger.Error("Failed to release event claim",
				zap.String("event_id", eventID),
				zap.Error(rerr))
		}
		return "", err
	}

	util.FulfillmentsTotal.WithLabelValues("processed").Inc()
	s.logger.Info("Checkout completed",
		zap.String("event_id", eventID),
		zap.String("session_id", session.ID),
		zap.String("status", session.Status))

	return session.Status, nil
}

func (s *FulfillmentService) fulfill(ctx context.Context, eventID string, session *models.CheckoutSession) error {
	if err := s.ledger.UpsertCheckoutSession(ctx, session); err != nil {
		return fmt.Errorf("failed to record checkout session: %w", err)
	}

	event := &models.CheckoutCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCheckoutCompleted,
			Timestamp: time.Now(),
		},
		ProviderEventID: eventID,
		SessionID:       session.ID,
		Status:          session.Status,
		PaymentStatus:   session.PaymentStatus,
		AmountTotal:     session.AmountTotal,
		Currency:        session.Currency,
	}
	if err := s.publisher.PublishCheckoutCompleted(ctx, event); err != nil {
		return fmt.Errorf("failed to publish CheckoutCompleted event: %w", err)
	}

	if err := s.ledger.MarkEventProcessed(ctx, eventID, eventTypeCheckoutSessionCompleted, session.Status); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

// HandleFulfillment consumes a CheckoutCompleted event and flags paid
// sessions as fulfilled. Unpaid sessions are left for a later event.
func (s *FulfillmentService) HandleFulfillment(ctx context.Context, event *models.CheckoutCompletedEvent) error {
	ctx, span := util.StartSpan(ctx, "FulfillmentService.HandleFulfillment")
	defer span.End()

	if event.Status != models.CheckoutStatusComplete || !isPaid(event.PaymentStatus) {
		s.logger.Info("Checkout not payable yet, skipping fulfillment",
			zap.String("session_id", event.SessionID),
			zap.String("payment_status", event.PaymentStatus))
		return nil
	}

	if err := s.ledger.MarkCheckoutFulfilled(ctx, event.SessionID); err != nil {
		return fmt.Errorf("failed to mark checkout fulfilled: %w", err)
	}

	s.logger.Info("Checkout fulfilled", zap.String("session_id", event.SessionID))
	return nil
}

func isPaid(paymentStatus string) bool {
	return paymentStatus == "paid" || paymentStatus == "no_payment_required"
}
