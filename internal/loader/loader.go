// Package loader coalesces keyed lookups issued during one resolution wave
// into a single fetch per batch identity.
//
// A Dispatcher lives for one request. Resolvers call Load while the executor
// resolves the fields of a wave; nothing is fetched until the executor yields
// and calls Flush, at which point every queued batch issues exactly one fetch
// with all of its distinct keys. Each Pending returned by Load settles with
// its own slice of the result.
package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/graphkit/internal/eventbus"
	"github.com/hanpama/graphkit/internal/events"
	"github.com/hanpama/graphkit/internal/logging"
)

// ErrNotSettled is returned by Pending.Result before the batch was flushed.
var ErrNotSettled = errors.New("loader: result requested before flush")

// ErrNoFetch is returned when a batch was queued without a fetch function.
var ErrNoFetch = errors.New("loader: batch has no fetch function")

// ErrNoDispatcher is returned by batched resolvers outside of a request.
var ErrNoDispatcher = errors.New("loader: no dispatcher in context")

// ID identifies one batching strategy.
type ID uint64

var lastID atomic.Uint64

// NewID returns a process-unique identity.
func NewID() ID { return ID(lastID.Add(1)) }

// Key is the identity of a batch: the strategy plus the canonical encoding
// of its arguments. Loads with different Args never share a fetch.
type Key struct {
	ID   ID
	Name string
	Args string
}

// Fetch loads the values of keys. Keys missing from the returned map settle
// as not found.
type Fetch func(ctx context.Context, keys []any) (map[any]any, error)

type result struct {
	value any
	found bool
}

type batch struct {
	key     Key
	fetch   Fetch
	keys    []any
	waiting map[any][]*Pending
}

// Dispatcher queues loads for one request.
type Dispatcher struct {
	mu          sync.Mutex
	queue       map[Key]*batch
	order       []Key
	memo        map[Key]map[any]result
	maxBatch    int
	concurrency int
	log         *logrus.Entry
	fetches     atomic.Int64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxBatch caps the number of keys per fetch. Zero means unlimited.
func WithMaxBatch(n int) Option { return func(d *Dispatcher) { d.maxBatch = n } }

// WithConcurrency caps the number of fetches running at once.
func WithConcurrency(n int) Option { return func(d *Dispatcher) { d.concurrency = n } }

// WithLogger sets the logger used for failed fetches.
func WithLogger(l *logrus.Entry) Option { return func(d *Dispatcher) { d.log = l } }

// NewDispatcher returns an empty dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue: make(map[Key]*batch),
		memo:  make(map[Key]map[any]result),
		log:   logging.Nop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Load queues key on the batch k. Values already fetched earlier in the
// request settle immediately.
func (d *Dispatcher) Load(k Key, key any, fetch Fetch) *Pending {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.memo[k][key]; ok {
		return settled(r.value, r.found, nil)
	}
	b := d.queue[k]
	if b == nil {
		b = &batch{key: k, fetch: fetch, waiting: make(map[any][]*Pending)}
		d.queue[k] = b
		d.order = append(d.order, k)
	}
	if _, ok := b.waiting[key]; !ok {
		b.keys = append(b.keys, key)
	}
	p := newPending()
	b.waiting[key] = append(b.waiting[key], p)
	return p
}

// Queued returns the number of batches waiting for a flush.
func (d *Dispatcher) Queued() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// Fetches returns the number of fetch calls issued so far.
func (d *Dispatcher) Fetches() int64 { return d.fetches.Load() }

// Flush issues the fetches of every queued batch and settles their pendings.
// Batches run concurrently; a failing batch only affects its own pendings.
func (d *Dispatcher) Flush(ctx context.Context) {
	d.mu.Lock()
	batches := make([]*batch, 0, len(d.order))
	for _, k := range d.order {
		batches = append(batches, d.queue[k])
	}
	d.queue = make(map[Key]*batch)
	d.order = nil
	d.mu.Unlock()

	if len(batches) == 0 {
		return
	}

	var g errgroup.Group
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}
	for _, b := range batches {
		for _, chunk := range d.chunks(b.keys) {
			g.Go(func() error {
				d.run(ctx, b, chunk)
				return nil
			})
		}
	}
	_ = g.Wait()
}

// Drain flushes until no batch is queued. Settling a pending may queue loads
// for a later batch, which Drain picks up in the following round.
func (d *Dispatcher) Drain(ctx context.Context) {
	for d.Queued() > 0 {
		d.Flush(ctx)
	}
}

func (d *Dispatcher) chunks(keys []any) [][]any {
	if d.maxBatch <= 0 || len(keys) <= d.maxBatch {
		return [][]any{keys}
	}
	var out [][]any
	for start := 0; start < len(keys); start += d.maxBatch {
		end := min(start+d.maxBatch, len(keys))
		out = append(out, keys[start:end])
	}
	return out
}

func (d *Dispatcher) run(ctx context.Context, b *batch, keys []any) {
	settleAll := func(err error) {
		for _, key := range keys {
			for _, p := range b.waiting[key] {
				p.settle(nil, false, err)
			}
		}
	}
	if b.fetch == nil {
		settleAll(ErrNoFetch)
		return
	}
	if err := ctx.Err(); err != nil {
		settleAll(err)
		return
	}

	eventbus.Publish(ctx, events.BatchFetchStart{Loader: b.key.Name, Keys: len(keys)})
	start := time.Now()
	d.fetches.Add(1)
	values, err := b.fetch(ctx, keys)
	finish := events.BatchFetchFinish{Loader: b.key.Name, Keys: len(keys), Err: err, Duration: time.Since(start)}
	if err != nil {
		eventbus.Publish(ctx, finish)
		d.log.WithFields(logrus.Fields{"loader": b.key.Name, "keys": len(keys)}).WithError(err).Warn("batch fetch failed")
		settleAll(err)
		return
	}

	d.mu.Lock()
	memo := d.memo[b.key]
	if memo == nil {
		memo = make(map[any]result, len(keys))
		d.memo[b.key] = memo
	}
	for _, key := range keys {
		v, ok := values[key]
		memo[key] = result{value: v, found: ok}
		if ok {
			finish.Found++
		}
	}
	d.mu.Unlock()
	eventbus.Publish(ctx, finish)

	for _, key := range keys {
		v, ok := values[key]
		for _, p := range b.waiting[key] {
			p.settle(v, ok, nil)
		}
	}
}

type dispatcherKey struct{}

// WithDispatcher attaches d to ctx.
func WithDispatcher(ctx context.Context, d *Dispatcher) context.Context {
	return context.WithValue(ctx, dispatcherKey{}, d)
}

// FromContext returns the dispatcher attached to ctx.
func FromContext(ctx context.Context) (*Dispatcher, bool) {
	d, ok := ctx.Value(dispatcherKey{}).(*Dispatcher)
	return d, ok && d != nil
}

// Pending is the eventual result of one Load.
type Pending struct {
	once  sync.Once
	done  chan struct{}
	value any
	found bool
	err   error
}

func newPending() *Pending { return &Pending{done: make(chan struct{})} }

func settled(v any, found bool, err error) *Pending {
	p := newPending()
	p.settle(v, found, err)
	return p
}

func (p *Pending) settle(v any, found bool, err error) {
	p.once.Do(func() {
		p.value, p.found, p.err = v, found, err
		close(p.done)
	})
}

// Done reports whether the pending has settled.
func (p *Pending) Done() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Result returns the settled value. found is false when the fetch did not
// return the key.
func (p *Pending) Result() (value any, found bool, err error) {
	if !p.Done() {
		return nil, false, ErrNotSettled
	}
	return p.value, p.found, p.err
}

// Wait blocks until the pending settles or ctx is done.
func (p *Pending) Wait(ctx context.Context) (any, bool, error) {
	select {
	case <-p.done:
		return p.value, p.found, p.err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Deferred is a value whose resolution waits for the next flush.
type Deferred interface {
	Done() bool
	Value() (any, error)
}

// Map wraps a pending with a conversion applied once it settles.
type Map struct {
	*Pending
	convert func(value any, found bool) (any, error)
}

// Then returns p with convert applied to its settled value.
func (p *Pending) Then(convert func(value any, found bool) (any, error)) *Map {
	return &Map{Pending: p, convert: convert}
}

// Value settles the mapped result.
func (m *Map) Value() (any, error) {
	v, found, err := m.Result()
	if err != nil {
		return nil, err
	}
	return m.convert(v, found)
}
