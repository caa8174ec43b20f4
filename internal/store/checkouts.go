package store

import (
	"context"
	"database/sql"
	"fmt"

	"cart-service/internal/models"
)

// UpsertCheckoutSession records the latest provider view of a checkout session.
// The fulfilled flag is never cleared by a later upsert.
func (s *Store) UpsertCheckoutSession(ctx context.Context, cs *models.CheckoutSession) error {
	query := `
		INSERT INTO checkout_sessions (id, status, payment_status, amount_total, currency)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			payment_status = EXCLUDED.payment_status,
			amount_total = EXCLUDED.amount_total,
			currency = EXCLUDED.currency,
			updated_at = NOW()`

	_, err := s.db.ExecContext(ctx, query,
		cs.ID, cs.Status, cs.PaymentStatus, cs.AmountTotal, cs.Currency)
	return err
}

// GetCheckoutSession retrieves a checkout session by provider id
func (s *Store) GetCheckoutSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	var cs models.CheckoutSession
	err := s.db.GetContext(ctx, &cs, "SELECT * FROM checkout_sessions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("checkout session not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

// MarkCheckoutFulfilled flags a checkout session as fulfilled
func (s *Store) MarkCheckoutFulfilled(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE checkout_sessions SET fulfilled = TRUE, updated_at = NOW() WHERE id = $1", id)
	return err
}

// GetProcessedEvent returns the ledger entry for eventID, or nil when the
// event has not been processed
func (s *Store) GetProcessedEvent(ctx context.Context, eventID string) (*models.ProcessedEvent, error) {
	var ev models.ProcessedEvent
	err := s.db.GetContext(ctx, &ev, "SELECT * FROM processed_events WHERE event_id = $1", eventID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType, outcome string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type, outcome) VALUES ($1, $2, $3) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType, outcome)
	return err
}
