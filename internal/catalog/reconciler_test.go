package catalog

import (
	"context"
	"errors"
	"testing"

	"cart-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture() (*fakeRemote, *countingStore, *countingSource) {
	return newFakeRemote(), newCountingStore(), &countingSource{inner: NewGenerator(42)}
}

func TestReconcileSeedsEmptyCatalog(t *testing.T) {
	remote, store, source := newFixture()
	r := NewReconciler(remote, store, source, Options{})

	res, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, BranchSeed, res.Branch)
	assert.Equal(t, 50, res.Products)
	assert.Equal(t, 1, remote.searchCalls)
	assert.Equal(t, 50, remote.productCalls)
	assert.Equal(t, 50, remote.priceCalls)
	assert.Equal(t, 50, store.upserts)
	assert.Len(t, store.products, 50)

	for id, p := range store.products {
		assert.NotEmpty(t, p.RemotePriceID, id)
	}
}

func TestReconcileImportsAllPages(t *testing.T) {
	remote, store, source := newFixture()
	remote.seedRemote(25)
	r := NewReconciler(remote, store, source, Options{PageSize: 10})

	res, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, BranchRemote, res.Branch)
	assert.Equal(t, 3, remote.searchCalls)
	assert.Equal(t, 3, res.SearchCalls)
	assert.Equal(t, []string{"", "10", "20"}, remote.cursors)
	assert.Len(t, store.products, 25)
	assert.Equal(t, 25, store.upserts)

	assert.Zero(t, source.calls, "generator must not run when remote has products")
	assert.Zero(t, remote.productCalls)
	assert.Zero(t, remote.priceCalls)
}

func TestReconcileProjectsRemoteFields(t *testing.T) {
	remote, store, source := newFixture()
	remote.seedRemote(3)
	r := NewReconciler(remote, store, source, Options{})

	_, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	p := store.products["local-02"]
	assert.Equal(t, "price_3", p.RemotePriceID)
	assert.Equal(t, "Item 2", p.Name)
	assert.Equal(t, 2, p.Quantity)
	assert.Equal(t, "https://shop.example/p/2", p.DetailsURL)
	assert.Equal(t, "1.02", p.UnitPrice.StringFixed(2))
}

func TestSeededProductsRoundTripThroughRemote(t *testing.T) {
	remote, seeded, source := newFixture()
	_, err := NewReconciler(remote, seeded, source, Options{SeedCount: 20}).Reconcile(context.Background())
	require.NoError(t, err)

	imported := newCountingStore()
	res, err := NewReconciler(remote, imported, source, Options{}).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BranchRemote, res.Branch)
	require.Len(t, imported.products, 20)

	for id, want := range seeded.products {
		got, ok := imported.products[id]
		require.True(t, ok, id)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Category, got.Category)
		assert.Equal(t, want.Quantity, got.Quantity)
		assert.Equal(t, want.DetailsURL, got.DetailsURL)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.RemotePriceID, got.RemotePriceID)
		assert.True(t, want.UnitPrice.Equal(got.UnitPrice), "%s != %s", want.UnitPrice, got.UnitPrice)
	}
	assert.Equal(t, 1, source.calls)
}

func TestReconcileAbortsOnMalformedMetadata(t *testing.T) {
	remote, store, source := newFixture()
	remote.seedRemote(5)
	remote.prices[3].Metadata = map[string]string{
		MetaUniqueID: "bad", MetaCategory: "Hardware", MetaQuantity: "many",
	}
	r := NewReconciler(remote, store, source, Options{})

	_, err := r.Reconcile(context.Background())
	require.Error(t, err)

	var die *DataIntegrityError
	require.ErrorAs(t, err, &die)
	assert.Equal(t, MetaQuantity, die.Field)
	assert.Len(t, store.products, 3)
	assert.NotContains(t, store.products, "bad")
	assert.Zero(t, source.calls)
}

func TestReconcileAbortsOnRemoteFailure(t *testing.T) {
	t.Run("initial search", func(t *testing.T) {
		remote, store, source := newFixture()
		remote.failSearchAt = 1
		_, err := NewReconciler(remote, store, source, Options{}).Reconcile(context.Background())
		require.Error(t, err)
		assert.Zero(t, source.calls, "search failure must not fall back to seeding")
		assert.Zero(t, store.upserts)
	})

	t.Run("later page", func(t *testing.T) {
		remote, store, source := newFixture()
		remote.seedRemote(25)
		remote.failSearchAt = 2
		_, err := NewReconciler(remote, store, source, Options{PageSize: 10}).Reconcile(context.Background())
		require.Error(t, err)
		assert.Len(t, store.products, 10)
		assert.Zero(t, source.calls)
	})

	t.Run("product create", func(t *testing.T) {
		remote, store, source := newFixture()
		remote.failProductAt = 4
		_, err := NewReconciler(remote, store, source, Options{}).Reconcile(context.Background())
		require.Error(t, err)
		assert.False(t, IsRetryable(err))
		assert.Equal(t, 3, store.upserts)
		assert.Equal(t, 3, remote.priceCalls)
	})

	t.Run("price create", func(t *testing.T) {
		remote, store, source := newFixture()
		remote.failPriceAt = 2
		remote.failErr = NewRemoteCallError("create_price", 0, context.DeadlineExceeded)
		_, err := NewReconciler(remote, store, source, Options{}).Reconcile(context.Background())
		require.Error(t, err)
		assert.True(t, IsRetryable(err))
		assert.Equal(t, 1, store.upserts)
	})

	t.Run("store upsert", func(t *testing.T) {
		remote, store, source := newFixture()
		store.failAt = 1
		_, err := NewReconciler(remote, store, source, Options{}).Reconcile(context.Background())
		require.Error(t, err)
		assert.Equal(t, 1, remote.productCalls)
		assert.Equal(t, 1, source.generated)
	})
}

func TestReconcileRejectsMissingCursor(t *testing.T) {
	remote := &cursorlessRemote{fakeRemote: newFakeRemote()}
	remote.seedRemote(2)
	_, err := NewReconciler(remote, newCountingStore(), &countingSource{inner: NewGenerator(1)}, Options{}).
		Reconcile(context.Background())
	assert.Error(t, err)
}

type cursorlessRemote struct {
	*fakeRemote
}

func (c *cursorlessRemote) SearchPrices(ctx context.Context, q string, size int, cursor string) (*PricePage, error) {
	page, err := c.fakeRemote.SearchPrices(ctx, q, size, cursor)
	if err != nil {
		return nil, err
	}
	page.HasMore = true
	page.NextCursor = ""
	return page, nil
}

func TestReconcileHonorsCancellation(t *testing.T) {
	remote, store, source := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReconciler(remote, store, source, Options{}).Reconcile(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, remote.searchCalls)
	assert.Zero(t, store.upserts)
}

func TestReconcileStopsMidSeedWhenCancelled(t *testing.T) {
	remote, _, source := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	store := &cancellingStore{countingStore: newCountingStore(), cancelAfter: 5, cancel: cancel}

	_, err := NewReconciler(remote, store, source, Options{}).Reconcile(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, store.upserts)
	assert.Equal(t, 5, remote.productCalls)
}

type cancellingStore struct {
	*countingStore
	cancelAfter int
	cancel      context.CancelFunc
}

func (s *cancellingStore) UpsertProduct(ctx context.Context, p *models.Product) error {
	err := s.countingStore.UpsertProduct(ctx, p)
	if s.upserts == s.cancelAfter {
		s.cancel()
	}
	return err
}

func TestReconcileRunsOnce(t *testing.T) {
	remote, store, source := newFixture()
	r := NewReconciler(remote, store, source, Options{SeedCount: 2})

	_, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	_, err = r.Reconcile(context.Background())
	assert.True(t, errors.Is(err, ErrAlreadyReconciled))
	assert.Equal(t, 1, remote.searchCalls)
}
