// Package bus implements an in-process broadcast bus.
//
// Every message published on a Bus is offered to every subscription that is
// registered at dispatch time. Delivery is best-effort: a subscriber whose
// buffer is full misses the message instead of stalling the other subscribers.
package bus

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type Publisher[M any] func(ctx context.Context, msg M)

var defaultOptions = options{
	queueSize:  64,
	bufferSize: 16,
}

type options struct {
	queueSize  int
	bufferSize int
}

type Option func(*options)

// WithBufferSize sets the per-subscriber buffer size.
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

type Bus[M any] struct {
	log     *zap.Logger
	options options
	ready   chan struct{}

	ch   chan M
	subs *xsync.MapOf[*subscription[M], struct{}]

	delivered *atomic.Uint64
	dropped   *atomic.Uint64
}

type subscription[M any] struct {
	mu     sync.RWMutex
	closed bool
	ch     chan M
}

func (s *subscription[M]) offer(msg M) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

func (s *subscription[M]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	close(s.ch)
}

func NewBus[M any](logger *zap.Logger, opts ...Option) *Bus[M] {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Bus[M]{
		log:     logger,
		options: options,
		ready:   make(chan struct{}),

		ch:   make(chan M, options.queueSize),
		subs: xsync.NewMapOf[*subscription[M], struct{}](),

		delivered: atomic.NewUint64(0),
		dropped:   atomic.NewUint64(0),
	}
}

// Start launches the dispatch worker. Messages published before Start are
// queued and dispatched once the worker runs.
func (b *Bus[M]) Start(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-b.ch:
				b.process(msg)
			}
		}
	}()
	close(b.ready)
	return nil
}

func (b *Bus[M]) Ready() <-chan struct{} {
	return b.ready
}

func (b *Bus[M]) process(msg M) {
	b.subs.Range(func(sub *subscription[M], _ struct{}) bool {
		if sub.offer(msg) {
			b.delivered.Inc()
		} else {
			b.dropped.Inc()
			b.log.Debug("subscriber buffer full, message dropped")
		}
		return true
	})
}

func (b *Bus[M]) Publish(ctx context.Context, msg M) {
	select {
	case <-ctx.Done():
		return
	case b.ch <- msg:
	}
}

func (b *Bus[M]) CreatePublisher() Publisher[M] {
	return b.Publish
}

// Subscribe registers a subscription that lives until ctx is done.
// The returned channel is closed after the subscription is removed.
func (b *Bus[M]) Subscribe(ctx context.Context) <-chan M {
	sub := &subscription[M]{ch: make(chan M, b.options.bufferSize)}
	b.subs.Store(sub, struct{}{})
	go func() {
		<-ctx.Done()
		b.subs.Delete(sub)
		sub.close()
	}()
	return sub.ch
}

type Stats struct {
	Subscribers int
	Delivered   uint64
	Dropped     uint64
}

func (b *Bus[M]) Stats() Stats {
	return Stats{
		Subscribers: b.subs.Size(),
		Delivered:   b.delivered.Load(),
		Dropped:     b.dropped.Load(),
	}
}
