package models

import "time"

// Event types
const (
	EventTypeCheckoutCompleted = "CHECKOUT_COMPLETED"
	EventTypeCatalogSynced     = "CATALOG_SYNCED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckoutCompletedEvent published once per provider checkout.session.completed delivery
type CheckoutCompletedEvent struct {
	BaseEvent
	ProviderEventID string `json:"provider_event_id"`
	SessionID       string `json:"session_id"`
	Status          string `json:"status"`
	PaymentStatus   string `json:"payment_status"`
	AmountTotal     int64  `json:"amount_total"`
	Currency        string `json:"currency"`
}

// CatalogSyncedEvent published after a successful startup reconciliation
type CatalogSyncedEvent struct {
	BaseEvent
	Branch   string `json:"branch"`
	Products int    `json:"products"`
}
