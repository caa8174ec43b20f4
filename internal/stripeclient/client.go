package stripeclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cart-service/internal/catalog"
	"cart-service/internal/util"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

const (
	appName    = "cart-service"
	appVersion = "0.1.0"
)

// Client implements catalog.RemoteCatalog on top of the Stripe API.
// Every call runs under its own timeout and is never retried here.
type Client struct {
	api     *client.API
	timeout time.Duration
	logger  *zap.Logger
}

var _ catalog.RemoteCatalog = (*Client)(nil)

// NewClient creates a Stripe client against the public API
func NewClient(secretKey string, timeout time.Duration) *Client {
	return NewClientWithURL(secretKey, "", timeout)
}

// NewClientWithURL creates a Stripe client against baseURL, or the public
// API when baseURL is empty
func NewClientWithURL(secretKey, baseURL string, timeout time.Duration) *Client {
	stripe.SetAppInfo(&stripe.AppInfo{Name: appName, Version: appVersion})

	logger := util.Named("stripe")
	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Sugar(),
	}
	if baseURL != "" {
		cfg.URL = stripe.String(baseURL)
	}

	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackend(stripe.UploadsBackend),
	})

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{api: api, timeout: timeout, logger: logger}
}

// CreateProduct creates a shippable product carrying metadata
func (c *Client) CreateProduct(ctx context.Context, name, description, imageURL string, metadata map[string]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.ProductParams{
		Name:      stripe.String(name),
		Shippable: stripe.Bool(true),
	}
	params.Context = ctx
	if description != "" {
		params.Description = stripe.String(description)
	}
	if imageURL != "" {
		params.Images = stripe.StringSlice([]string{imageURL})
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if id := metadata[catalog.MetaUniqueID]; id != "" {
		params.SetIdempotencyKey("product-" + id)
	}

	start := time.Now()
	product, err := c.api.Products.New(params)
	c.observe("create_product", start, err)
	if err != nil {
		return "", classify("create_product", err)
	}

	return product.ID, nil
}

// CreatePrice creates a one-off price for productID
func (c *Client) CreatePrice(ctx context.Context, productID string, unitAmountMinor int64, currency string, metadata map[string]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.PriceParams{
		Product:    stripe.String(productID),
		UnitAmount: stripe.Int64(unitAmountMinor),
		Currency:   stripe.String(currency),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if id := metadata[catalog.MetaUniqueID]; id != "" {
		params.SetIdempotencyKey("price-" + id)
	}

	start := time.Now()
	price, err := c.api.Prices.New(params)
	c.observe("create_price", start, err)
	if err != nil {
		return "", classify("create_price", err)
	}

	return price.ID, nil
}

// SearchPrices fetches exactly one page of prices matching query, with
// their products expanded
func (c *Client) SearchPrices(ctx context.Context, query string, pageSize int, cursor string) (*catalog.PricePage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.PriceSearchParams{}
	params.Context = ctx
	params.Query = query
	params.Limit = stripe.Int64(int64(pageSize))
	params.Single = true
	params.AddExpand("data.product")
	if cursor != "" {
		params.Page = stripe.String(cursor)
	}

	start := time.Now()
	iter := c.api.Prices.Search(params)

	page := &catalog.PricePage{}
	for iter.Next() {
		page.Prices = append(page.Prices, toRemotePrice(iter.Price()))
	}
	err := iter.Err()
	c.observe("search_prices", start, err)
	if err != nil {
		return nil, classify("search_prices", err)
	}

	if res := iter.PriceSearchResult(); res != nil {
		page.HasMore = res.HasMore
		if res.NextPage != nil {
			page.NextCursor = *res.NextPage
		}
	}

	return page, nil
}

// CheckoutItem is a line item of a checkout session
type CheckoutItem struct {
	PriceID  string
	Quantity int64
}

// CheckoutSession is the part of a created session the caller needs
type CheckoutSession struct {
	ID  string
	URL string
}

// CreateCheckoutSession opens a payment-mode checkout session shipping to the US
func (c *Client) CreateCheckoutSession(ctx context.Context, items []CheckoutItem, successURL, cancelURL string) (*CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(item.PriceID),
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:      stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: lineItems,
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice([]string{"US"}),
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Context = ctx

	start := time.Now()
	session, err := c.api.CheckoutSessions.New(params)
	c.observe("create_checkout_session", start, err)
	if err != nil {
		return nil, classify("create_checkout_session", err)
	}

	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (c *Client) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		c.logger.Warn("Stripe call failed", zap.String("op", op), zap.Error(err))
	}
	util.RemoteCallLatency.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}

// classify maps a Stripe SDK error onto catalog.RemoteCallError
func classify(op string, err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		return catalog.NewRemoteCallError(op, serr.HTTPStatusCode, fmt.Errorf("%s: %s", serr.Type, serr.Msg))
	}
	return catalog.NewRemoteCallError(op, 0, err)
}

func toRemotePrice(p *stripe.Price) catalog.RemotePrice {
	rp := catalog.RemotePrice{
		ID:              p.ID,
		UnitAmountMinor: p.UnitAmount,
		Currency:        string(p.Currency),
		Metadata:        make(map[string]string, len(p.Metadata)),
	}

	if prod := p.Product; prod != nil {
		rp.ProductID = prod.ID
		rp.ProductName = prod.Name
		rp.Description = prod.Description
		if len(prod.Images) > 0 {
			rp.ImageURL = prod.Images[0]
		}
		for k, v := range prod.Metadata {
			rp.Metadata[k] = v
		}
	}
	for k, v := range p.Metadata {
		rp.Metadata[k] = v
	}

	return rp
}
