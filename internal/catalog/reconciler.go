package catalog

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"

	"cart-service/internal/models"
	"cart-service/internal/util"

	"go.uber.org/zap"
)

// Reconciliation branches
const (
	BranchRemote = "remote"
	BranchSeed   = "seed"
)

// ProductStore is the local, key-addressable product store.
// UpsertProduct must be idempotent and atomic per product id.
type ProductStore interface {
	UpsertProduct(ctx context.Context, p *models.Product) error
}

// ProductSource yields candidate products when the remote catalog is empty
type ProductSource interface {
	Generate(count int) iter.Seq[models.Product]
}

// Options tunes a reconciliation run
type Options struct {
	PageSize  int
	SeedCount int
	Currency  string
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		PageSize:  10,
		SeedCount: 50,
		Currency:  "usd",
	}
}

// Result summarises a finished reconciliation
type Result struct {
	Branch      string
	Products    int
	SearchCalls int
}

// Reconciler aligns the local product store with the remote catalog
type Reconciler struct {
	remote  RemoteCatalog
	store   ProductStore
	source  ProductSource
	opts    Options
	logger  *zap.Logger
	started atomic.Bool
}

// NewReconciler creates a new reconciler
func NewReconciler(remote RemoteCatalog, store ProductStore, source ProductSource, opts Options) *Reconciler {
	def := DefaultOptions()
	if opts.PageSize <= 0 {
		opts.PageSize = def.PageSize
	}
	if opts.SeedCount <= 0 {
		opts.SeedCount = def.SeedCount
	}
	if opts.Currency == "" {
		opts.Currency = def.Currency
	}

	return &Reconciler{
		remote: remote,
		store:  store,
		source: source,
		opts:   opts,
		logger: util.Named("reconciler"),
	}
}

// Reconcile runs the startup synchronization. The remote catalog is the
// source of truth when it holds demo products; otherwise both sides are
// seeded from the product source. The branch is chosen once, from the
// first search page.
func (r *Reconciler) Reconcile(ctx context.Context) (*Result, error) {
	if !r.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyReconciled
	}

	ctx, span := util.StartSpan(ctx, "Reconciler.Reconcile")
	defer span.End()

	res := &Result{}

	first, err := r.search(ctx, res, "")
	if err != nil {
		return r.fail(res, err)
	}

	if len(first.Prices) == 0 {
		res.Branch = BranchSeed
		r.logger.Info("Remote catalog empty, seeding", zap.Int("count", r.opts.SeedCount))
		err = r.seed(ctx, res)
	} else {
		res.Branch = BranchRemote
		r.logger.Info("Remote catalog found, importing")
		err = r.importPages(ctx, res, first)
	}
	if err != nil {
		return r.fail(res, err)
	}

	util.ReconcileRunsTotal.WithLabelValues(res.Branch, "success").Inc()
	r.logger.Info("Catalog reconciled",
		zap.String("branch", res.Branch),
		zap.Int("products", res.Products),
		zap.Int("search_calls", res.SearchCalls))

	return res, nil
}

func (r *Reconciler) fail(res *Result, err error) (*Result, error) {
	branch := res.Branch
	if branch == "" {
		branch = "none"
	}
	util.ReconcileRunsTotal.WithLabelValues(branch, "failure").Inc()
	r.logger.Error("Catalog reconciliation failed",
		zap.String("branch", branch),
		zap.Int("products", res.Products),
		zap.Error(err))
	return res, err
}

func (r *Reconciler) search(ctx context.Context, res *Result, cursor string) (*PricePage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.SearchCalls++
	page, err := r.remote.SearchPrices(ctx, DemoProductQuery, r.opts.PageSize, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to search remote prices: %w", err)
	}
	if page == nil {
		return &PricePage{}, nil
	}
	return page, nil
}

func (r *Reconciler) importPages(ctx context.Context, res *Result, page *PricePage) error {
	for {
		for _, rp := range page.Prices {
			product, err := ProjectPrice(rp)
			if err != nil {
				return fmt.Errorf("failed to project remote price %s: %w", rp.ID, err)
			}
			if err := r.upsert(ctx, product); err != nil {
				return err
			}
			util.ReconciledProductsTotal.WithLabelValues(BranchRemote).Inc()
			res.Products++
		}

		if !page.HasMore {
			return nil
		}
		if page.NextCursor == "" {
			return errors.New("remote reported more prices without a page cursor")
		}

		next, err := r.search(ctx, res, page.NextCursor)
		if err != nil {
			return err
		}
		page = next
	}
}

func (r *Reconciler) seed(ctx context.Context, res *Result) error {
	for p := range r.source.Generate(r.opts.SeedCount) {
		if err := r.createRemote(ctx, &p); err != nil {
			return err
		}
		if err := r.upsert(ctx, &p); err != nil {
			return err
		}
		util.ReconciledProductsTotal.WithLabelValues(BranchSeed).Inc()
		res.Products++
	}
	return nil
}

// createRemote creates the product and its price, stamping RemotePriceID
func (r *Reconciler) createRemote(ctx context.Context, p *models.Product) error {
	amount, err := ToMinorUnits(p.UnitPrice)
	if err != nil {
		return fmt.Errorf("failed to convert price of product %s: %w", p.ID, err)
	}
	metadata := EncodeMetadata(p)

	if err := ctx.Err(); err != nil {
		return err
	}
	productID, err := r.remote.CreateProduct(ctx, p.Name, p.Description, p.ImageURL, metadata)
	if err != nil {
		return fmt.Errorf("failed to create remote product %s: %w", p.ID, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	priceID, err := r.remote.CreatePrice(ctx, productID, amount, r.opts.Currency, metadata)
	if err != nil {
		return fmt.Errorf("failed to create remote price for product %s: %w", p.ID, err)
	}

	p.RemotePriceID = priceID
	return nil
}

func (r *Reconciler) upsert(ctx context.Context, p *models.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.store.UpsertProduct(ctx, p); err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
	}
	return nil
}
