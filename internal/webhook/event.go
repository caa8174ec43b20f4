package webhook

import (
	"encoding/json"
	"errors"
	"fmt"

	"cart-service/internal/models"

	"github.com/stripe/stripe-go/v76"
)

// Provider event types this service recognizes
const (
	TypeCheckoutSessionCompleted = "checkout.session.completed"
)

// Event is a verified provider event. It is one of *CheckoutSessionCompleted
// or *Unrecognized.
type Event interface {
	EventID() string
	EventType() string
	isEvent()
}

// CheckoutSessionCompleted is delivered when a customer finishes checkout
type CheckoutSessionCompleted struct {
	ID      string
	Session models.CheckoutSession
}

func (e *CheckoutSessionCompleted) EventID() string   { return e.ID }
func (e *CheckoutSessionCompleted) EventType() string { return TypeCheckoutSessionCompleted }
func (*CheckoutSessionCompleted) isEvent()            {}

// Unrecognized is any event type without a handler; it is acknowledged and ignored
type Unrecognized struct {
	ID   string
	Type string
}

func (e *Unrecognized) EventID() string   { return e.ID }
func (e *Unrecognized) EventType() string { return e.Type }
func (*Unrecognized) isEvent()            {}

// DispatchError reports a verified payload whose shape is not usable
type DispatchError struct {
	EventType string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("unusable %q event: %v", e.EventType, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

type envelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a verified payload into an Event
func ParseEvent(payload []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, &DispatchError{Err: fmt.Errorf("failed to decode event: %w", err)}
	}
	if env.ID == "" || env.Type == "" {
		return nil, &DispatchError{EventType: env.Type, Err: errors.New("missing event id or type")}
	}

	switch env.Type {
	case TypeCheckoutSessionCompleted:
		session, err := decodeCheckoutSession(env.Data.Object)
		if err != nil {
			return nil, &DispatchError{EventType: env.Type, Err: err}
		}
		return &CheckoutSessionCompleted{ID: env.ID, Session: *session}, nil
	default:
		return &Unrecognized{ID: env.ID, Type: env.Type}, nil
	}
}

func decodeCheckoutSession(raw json.RawMessage) (*models.CheckoutSession, error) {
	if len(raw) == 0 {
		return nil, errors.New("missing data.object")
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	if s.ID == "" {
		return nil, errors.New("checkout session without id")
	}
	if s.Status == "" {
		return nil, errors.New("checkout session without status")
	}

	return &models.CheckoutSession{
		ID:            s.ID,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
	}, nil
}
