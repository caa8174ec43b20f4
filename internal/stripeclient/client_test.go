package stripeclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cart-service/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClientWithURL("sk_test_123", srv.URL, 2*time.Second)
}

func TestCreateProductSendsMetadata(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/products", r.URL.Path)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "Blue Lamp", r.PostForm.Get("name"))
		assert.Equal(t, "true", r.PostForm.Get("shippable"))
		assert.Equal(t, "https://img.example/1.png", r.PostForm.Get("images[0]"))
		assert.Equal(t, "p-1", r.PostForm.Get("metadata[uniqueId]"))
		assert.Equal(t, "product-p-1", r.Header.Get("Idempotency-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"prod_1","object":"product","name":"Blue Lamp"}`))
	})

	id, err := c.CreateProduct(context.Background(), "Blue Lamp", "A lamp", "https://img.example/1.png",
		map[string]string{catalog.MetaUniqueID: "p-1", catalog.MetaDemoProduct: "true"})
	require.NoError(t, err)
	assert.Equal(t, "prod_1", id)
}

func TestCreatePriceSendsMinorUnits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/prices", r.URL.Path)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "prod_1", r.PostForm.Get("product"))
		assert.Equal(t, "1999", r.PostForm.Get("unit_amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"price_1","object":"price","unit_amount":1999,"currency":"usd"}`))
	})

	id, err := c.CreatePrice(context.Background(), "prod_1", 1999, "usd", nil)
	require.NoError(t, err)
	assert.Equal(t, "price_1", id)
}

func TestSearchPricesReturnsSinglePage(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/v1/prices/search", r.URL.Path)
		assert.Equal(t, catalog.DemoProductQuery, r.URL.Query().Get("query"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "cursor-1", r.URL.Query().Get("page"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "search_result",
			"url": "/v1/prices/search",
			"has_more": true,
			"next_page": "cursor-2",
			"data": [{
				"id": "price_1",
				"object": "price",
				"unit_amount": 1250,
				"currency": "usd",
				"metadata": {"quantity": "4"},
				"product": {
					"id": "prod_1",
					"object": "product",
					"name": "Blue Lamp",
					"description": "A lamp",
					"images": ["https://img.example/1.png"],
					"metadata": {"uniqueId": "p-1", "category": "Hardware", "quantity": "9", "demo_product": "true"}
				}
			}]
		}`))
	})

	page, err := c.SearchPrices(context.Background(), catalog.DemoProductQuery, 10, "cursor-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, page.HasMore)
	assert.Equal(t, "cursor-2", page.NextCursor)
	require.Len(t, page.Prices, 1)

	rp := page.Prices[0]
	assert.Equal(t, "price_1", rp.ID)
	assert.Equal(t, "prod_1", rp.ProductID)
	assert.Equal(t, "Blue Lamp", rp.ProductName)
	assert.Equal(t, "https://img.example/1.png", rp.ImageURL)
	assert.Equal(t, int64(1250), rp.UnitAmountMinor)
	assert.Equal(t, "p-1", rp.Metadata[catalog.MetaUniqueID])
	// price metadata overrides product metadata
	assert.Equal(t, "4", rp.Metadata[catalog.MetaQuantity])
}

func TestErrorsAreClassified(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		temporary bool
	}{
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"nope"}}`))
			})

			_, err := c.CreatePrice(context.Background(), "prod_1", 100, "usd", nil)
			require.Error(t, err)

			var rce *catalog.RemoteCallError
			require.ErrorAs(t, err, &rce)
			assert.Equal(t, tt.status, rce.StatusCode)
			assert.Equal(t, tt.temporary, rce.Temporary)
			assert.Equal(t, tt.temporary, catalog.IsRetryable(err))
		})
	}
}

func TestTimeoutIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	c.timeout = 50 * time.Millisecond

	_, err := c.CreateProduct(context.Background(), "Slow", "", "", nil)
	require.Error(t, err)
	assert.True(t, catalog.IsRetryable(err))
}
