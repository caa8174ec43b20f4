package catalog

import (
	"context"
	"fmt"
	"iter"
	"strconv"

	"cart-service/internal/models"
)

// fakeRemote is an in-memory provider with cursor pagination
type fakeRemote struct {
	products map[string]map[string]string
	names    map[string]string
	prices   []RemotePrice

	searchCalls  int
	productCalls int
	priceCalls   int
	cursors      []string

	failSearchAt  int
	failProductAt int
	failPriceAt   int
	failErr       error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		products: map[string]map[string]string{},
		names:    map[string]string{},
		failErr:  NewRemoteCallError("fake", 400, fmt.Errorf("rejected")),
	}
}

func (f *fakeRemote) CreateProduct(_ context.Context, name, _, _ string, md map[string]string) (string, error) {
	f.productCalls++
	if f.failProductAt == f.productCalls {
		return "", f.failErr
	}
	id := fmt.Sprintf("prod_%d", f.productCalls)
	f.products[id] = md
	f.names[id] = name
	return id, nil
}

func (f *fakeRemote) CreatePrice(_ context.Context, productID string, amount int64, currency string, md map[string]string) (string, error) {
	f.priceCalls++
	if f.failPriceAt == f.priceCalls {
		return "", f.failErr
	}
	if _, ok := f.products[productID]; !ok {
		return "", NewRemoteCallError("create_price", 400, fmt.Errorf("no such product %s", productID))
	}
	id := fmt.Sprintf("price_%d", f.priceCalls)
	f.prices = append(f.prices, RemotePrice{
		ID:              id,
		ProductID:       productID,
		ProductName:     f.names[productID],
		UnitAmountMinor: amount,
		Currency:        currency,
		Metadata:        md,
	})
	return id, nil
}

func (f *fakeRemote) SearchPrices(_ context.Context, query string, pageSize int, cursor string) (*PricePage, error) {
	f.searchCalls++
	f.cursors = append(f.cursors, cursor)
	if f.failSearchAt == f.searchCalls {
		return nil, f.failErr
	}
	if query != DemoProductQuery {
		return nil, fmt.Errorf("unexpected query %q", query)
	}

	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, err
		}
		start = n
	}
	end := min(start+pageSize, len(f.prices))

	page := &PricePage{Prices: append([]RemotePrice(nil), f.prices[start:end]...)}
	if end < len(f.prices) {
		page.HasMore = true
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

// seedRemote fills the fake with n demo prices
func (f *fakeRemote) seedRemote(n int) {
	for i := 0; i < n; i++ {
		p := &models.Product{
			ID:         fmt.Sprintf("local-%02d", i),
			Category:   models.Categories[i%len(models.Categories)],
			DetailsURL: fmt.Sprintf("https://shop.example/p/%d", i),
			Quantity:   i,
		}
		md := EncodeMetadata(p)
		prodID, _ := f.CreateProduct(context.Background(), fmt.Sprintf("Item %d", i), "", "", md)
		_, _ = f.CreatePrice(context.Background(), prodID, int64(100+i), "usd", md)
	}
	f.productCalls, f.priceCalls = 0, 0
}

type countingStore struct {
	products map[string]models.Product
	upserts  int
	failAt   int
}

func newCountingStore() *countingStore {
	return &countingStore{products: map[string]models.Product{}}
}

func (s *countingStore) UpsertProduct(_ context.Context, p *models.Product) error {
	s.upserts++
	if s.failAt == s.upserts {
		return fmt.Errorf("store unavailable")
	}
	s.products[p.ID] = *p
	return nil
}

type countingSource struct {
	inner     ProductSource
	generated int
	calls     int
}

func (s *countingSource) Generate(count int) iter.Seq[models.Product] {
	s.calls++
	seq := s.inner.Generate(count)
	return func(yield func(models.Product) bool) {
		for p := range seq {
			s.generated++
			if !yield(p) {
				return
			}
		}
	}
}
