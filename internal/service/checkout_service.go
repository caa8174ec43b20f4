package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cart-service/internal/stripeclient"
	"cart-service/internal/util"

	"go.uber.org/zap"
)

var (
	// ErrNotPurchasable is returned for products without a remote price
	ErrNotPurchasable = errors.New("product has no remote price")
	// ErrInsufficientStock is returned when a cart asks for more than is in stock
	ErrInsufficientStock = errors.New("insufficient stock")
)

// CheckoutProvider opens hosted checkout sessions
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, items []stripeclient.CheckoutItem, successURL, cancelURL string) (*stripeclient.CheckoutSession, error)
}

// CheckoutRequest represents a cart submitted for checkout
type CheckoutRequest struct {
	Items []CheckoutItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CheckoutItemRequest represents an item in a cart
type CheckoutItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// CheckoutResponse carries the hosted checkout location
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CheckoutService creates checkout sessions from carts
type CheckoutService struct {
	catalog  *CatalogService
	provider CheckoutProvider
	baseURL  string
	logger   *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(catalog *CatalogService, provider CheckoutProvider, baseURL string) *CheckoutService {
	return &CheckoutService{
		catalog:  catalog,
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   util.Named("checkout"),
	}
}

// CreateCheckout validates the cart against the local catalog and opens a
// provider checkout session for it
func (s *CheckoutService) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateCheckout")
	defer span.End()

	quantities := make(map[string]int, len(req.Items))
	order := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if _, seen := quantities[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}

	items := make([]stripeclient.CheckoutItem, 0, len(order))
	for _, id := range order {
		product, err := s.catalog.GetProduct(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load product %s: %w", id, err)
		}
		if !product.Purchasable() {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotPurchasable)
		}
		if quantities[id] > product.Quantity {
			return nil, fmt.Errorf("product %s: %w", id, ErrInsufficientStock)
		}
		items = append(items, stripeclient.CheckoutItem{
			PriceID:  product.RemotePriceID,
			Quantity: int64(quantities[id]),
		})
	}

	session, err := s.provider.CreateCheckoutSession(ctx, items,
		s.baseURL+"/success?session_id={CHECKOUT_SESSION_ID}",
		s.baseURL+"/")
	if err != nil {
		util.FailSpan(span, err)
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	util.CheckoutSessionsCreatedTotal.Inc()
	s.logger.Info("Checkout session created",
		zap.String("session_id", session.ID),
		zap.Int("line_items", len(items)))

	return &CheckoutResponse{SessionID: session.ID, URL: session.URL}, nil
}
