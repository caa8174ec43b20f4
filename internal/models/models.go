package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the closed set of product categories
type Category string

const (
	CategoryAccessories Category = "Accessories"
	CategoryHardware    Category = "Hardware"
	CategorySoftware    Category = "Software"
	CategoryBooks       Category = "Books"
	CategoryMovies      Category = "Movies"
	CategoryMusic       Category = "Music"
	CategoryGames       Category = "Games"
	CategoryOther       Category = "Other"
)

// Categories lists every valid category in declaration order
var Categories = []Category{
	CategoryAccessories,
	CategoryHardware,
	CategorySoftware,
	CategoryBooks,
	CategoryMovies,
	CategoryMusic,
	CategoryGames,
	CategoryOther,
}

// ParseCategory maps a string onto the closed category set
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Product represents a sellable item in the catalog
type Product struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Description   string          `db:"description" json:"description"`
	ImageURL      string          `db:"image_url" json:"image_url"`
	DetailsURL    string          `db:"details_url" json:"details_url"`
	Category      Category        `db:"category" json:"category"`
	Quantity      int             `db:"quantity" json:"quantity"`
	UnitPrice     decimal.Decimal `db:"unit_price" json:"unit_price"`
	RemotePriceID string          `db:"remote_price_id" json:"remote_price_id"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Purchasable reports whether the product can be put into a checkout session
func (p *Product) Purchasable() bool {
	return p.RemotePriceID != ""
}

// CheckoutSession is the local record of a provider checkout session
type CheckoutSession struct {
	ID            string    `db:"id" json:"id"`
	Status        string    `db:"status" json:"status"`
	PaymentStatus string    `db:"payment_status" json:"payment_status"`
	AmountTotal   int64     `db:"amount_total" json:"amount_total"`
	Currency      string    `db:"currency" json:"currency"`
	Fulfilled     bool      `db:"fulfilled" json:"fulfilled"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Checkout session statuses as reported by the provider
const (
	CheckoutStatusOpen     = "open"
	CheckoutStatusComplete = "complete"
	CheckoutStatusExpired  = "expired"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	Outcome     string    `db:"outcome"`
	ProcessedAt time.Time `db:"processed_at"`
}
