package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// RemoteCatalog is the subset of the payment provider the catalog depends on.
// Implementations do not retry; failures are reported as *RemoteCallError.
type RemoteCatalog interface {
	CreateProduct(ctx context.Context, name, description, imageURL string, metadata map[string]string) (string, error)
	CreatePrice(ctx context.Context, productID string, unitAmountMinor int64, currency string, metadata map[string]string) (string, error)
	SearchPrices(ctx context.Context, query string, pageSize int, cursor string) (*PricePage, error)
}

// RemotePrice is a provider price together with the product it references
type RemotePrice struct {
	ID              string
	ProductID       string
	ProductName     string
	Description     string
	ImageURL        string
	UnitAmountMinor int64
	Currency        string
	Metadata        map[string]string
}

// PricePage is one page of a price search. NextCursor is opaque.
type PricePage struct {
	Prices     []RemotePrice
	NextCursor string
	HasMore    bool
}

// DemoProductQuery selects prices stamped by the catalog bootstrap
const DemoProductQuery = "metadata['" + MetaDemoProduct + "']:'true'"

// UnitPriceFromMinor converts a two-decimal minor unit amount into major units
func UnitPriceFromMinor(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
