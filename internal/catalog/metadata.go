package catalog

import (
	"errors"
	"strconv"

	"cart-service/internal/models"
)

// Metadata keys round-tripped through the remote provider
const (
	MetaUniqueID    = "uniqueId"
	MetaCategory    = "category"
	MetaDemoProduct = "demo_product"
	MetaDetailsURL  = "detailsUrl"
	MetaQuantity    = "quantity"
)

// ProductMetadata holds the product fields stored as remote metadata
type ProductMetadata struct {
	ID         string
	Category   models.Category
	DetailsURL string
	Quantity   int
}

// EncodeMetadata serializes the metadata-carried fields of p
func EncodeMetadata(p *models.Product) map[string]string {
	return map[string]string{
		MetaUniqueID:    p.ID,
		MetaCategory:    string(p.Category),
		MetaDemoProduct: "true",
		MetaDetailsURL:  p.DetailsURL,
		MetaQuantity:    strconv.Itoa(p.Quantity),
	}
}

// DecodeMetadata is the inverse of EncodeMetadata. Missing or malformed
// values are reported as *DataIntegrityError.
func DecodeMetadata(md map[string]string) (ProductMetadata, error) {
	var out ProductMetadata

	id := md[MetaUniqueID]
	if id == "" {
		return out, &DataIntegrityError{Field: MetaUniqueID, Err: errors.New("missing")}
	}

	raw := md[MetaCategory]
	category, err := models.ParseCategory(raw)
	if err != nil {
		return out, &DataIntegrityError{Field: MetaCategory, Value: raw, Err: err}
	}

	raw = md[MetaQuantity]
	quantity, err := strconv.Atoi(raw)
	if err != nil {
		return out, &DataIntegrityError{Field: MetaQuantity, Value: raw, Err: err}
	}
	if quantity < 0 {
		return out, &DataIntegrityError{Field: MetaQuantity, Value: raw, Err: errors.New("negative")}
	}

	out.ID = id
	out.Category = category
	out.DetailsURL = md[MetaDetailsURL]
	out.Quantity = quantity
	return out, nil
}

// ProjectPrice builds the local product for a remote price record
func ProjectPrice(rp RemotePrice) (*models.Product, error) {
	md, err := DecodeMetadata(rp.Metadata)
	if err != nil {
		return nil, err
	}

	return &models.Product{
		ID:            md.ID,
		Name:          rp.ProductName,
		Description:   rp.Description,
		ImageURL:      rp.ImageURL,
		DetailsURL:    md.DetailsURL,
		Category:      md.Category,
		Quantity:      md.Quantity,
		UnitPrice:     UnitPriceFromMinor(rp.UnitAmountMinor),
		RemotePriceID: rp.ID,
	}, nil
}
