package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"cart-service/internal/models"
	"cart-service/internal/redisclient"
	"cart-service/internal/stripeclient"
)

type fakeLedger struct {
	mu        sync.Mutex
	processed map[string]models.ProcessedEvent
	sessions  map[string]models.CheckoutSession
	fulfilled map[string]bool
	upsertErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		processed: map[string]models.ProcessedEvent{},
		sessions:  map[string]models.CheckoutSession{},
		fulfilled: map[string]bool{},
	}
}

func (l *fakeLedger) GetProcessedEvent(_ context.Context, id string) (*models.ProcessedEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ev, ok := l.processed[id]; ok {
		return &ev, nil
	}
	return nil, nil
}

func (l *fakeLedger) MarkEventProcessed(_ context.Context, id, typ, outcome string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.processed[id]; !ok {
		l.processed[id] = models.ProcessedEvent{EventID: id, EventType: typ, Outcome: outcome}
	}
	return nil
}

func (l *fakeLedger) UpsertCheckoutSession(_ context.Context, cs *models.CheckoutSession) error {
	if l.upsertErr != nil {
		return l.upsertErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions[cs.ID] = *cs
	return nil
}

func (l *fakeLedger) MarkCheckoutFulfilled(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fulfilled[id] = true
	return nil
}

type fakeClaimer struct {
	mu       sync.Mutex
	held     map[string]bool
	released int
}

func newFakeClaimer() *fakeClaimer {
	return &fakeClaimer{held: map[string]bool{}}
}

func (c *fakeClaimer) ClaimIdempotencyKey(_ context.Context, key string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held[key] {
		return false, nil
	}
	c.held[key] = true
	return true, nil
}

func (c *fakeClaimer) ReleaseIdempotencyKey(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, key)
	c.released++
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*models.CheckoutCompletedEvent
	err    error
}

func (p *fakePublisher) PublishCheckoutCompleted(_ context.Context, ev *models.CheckoutCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fakeCache struct {
	items map[string]models.Product
	err   error
	hits  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string]models.Product{}}
}

func (c *fakeCache) CacheProduct(_ context.Context, p *models.Product) error {
	if c.err != nil {
		return c.err
	}
	c.items[p.ID] = *p
	return nil
}

func (c *fakeCache) GetCachedProduct(_ context.Context, id string) (*models.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.items[id]
	if !ok {
		return nil, redisclient.ErrCacheMiss
	}
	c.hits++
	return &p, nil
}

type fakeCheckoutProvider struct {
	items           []stripeclient.CheckoutItem
	success, cancel string
	err             error
}

func (p *fakeCheckoutProvider) CreateCheckoutSession(_ context.Context, items []stripeclient.CheckoutItem, successURL, cancelURL string) (*stripeclient.CheckoutSession, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.items = items
	p.success, p.cancel = successURL, cancelURL
	return &stripeclient.CheckoutSession{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil
}

var errBoom = errors.New("boom")
