package catalog

import (
	"iter"
	"slices"
	"strings"
	"sync"

	"cart-service/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Price bounds for synthetic products, in major units
const (
	minSyntheticPrice = 1.0
	maxSyntheticPrice = 500.0
	maxSyntheticStock = 100
)

// Generator produces plausible synthetic products for bootstrapping an
// empty catalog
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a generator. A seed of 0 picks a random seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Generate returns a single-use sequence of count products with unique ids.
// Ranging over the sequence again continues where the previous range stopped.
func (g *Generator) Generate(count int) iter.Seq[models.Product] {
	seen := make(map[string]struct{}, count)
	remaining := count

	return func(yield func(models.Product) bool) {
		for remaining > 0 {
			p := g.next(seen)
			remaining--
			if !yield(p) {
				return
			}
		}
	}
}

func (g *Generator) next(seen map[string]struct{}) models.Product {
	id := uuid.NewString()
	for {
		if _, dup := seen[id]; !dup {
			break
		}
		id = uuid.NewString()
	}
	seen[id] = struct{}{}

	f := g.faker
	price := decimal.NewFromFloat(f.Price(minSyntheticPrice, maxSyntheticPrice)).Round(2)
	if !price.IsPositive() {
		price = decimal.NewFromInt(1)
	}

	return models.Product{
		ID:          id,
		Name:        titleCase(f.Adjective() + " " + f.Noun()),
		Description: f.Sentence(12),
		ImageURL:    f.ImageURL(640, 480),
		DetailsURL:  f.URL(),
		Category:    models.Categories[f.Number(0, len(models.Categories)-1)],
		Quantity:    f.Number(0, maxSyntheticStock),
		UnitPrice:   price,
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ReplaySource remembers the products drawn from an underlying source and
// hands the same products out again on later calls. A retried seed then
// reuses ids, so idempotency keys derived from them dedupe remote creates.
type ReplaySource struct {
	source   ProductSource
	mu       sync.Mutex
	products []models.Product
}

// NewReplaySource wraps source
func NewReplaySource(source ProductSource) *ReplaySource {
	return &ReplaySource{source: source}
}

// Generate returns the first count remembered products, drawing more from
// the underlying source when fewer are remembered
func (s *ReplaySource) Generate(count int) iter.Seq[models.Product] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if missing := count - len(s.products); missing > 0 {
		for p := range s.source.Generate(missing) {
			s.products = append(s.products, p)
		}
	}

	n := min(count, len(s.products))
	return slices.Values(slices.Clone(s.products[:n]))
}
