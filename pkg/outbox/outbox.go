// Package outbox is an in-process event bus for side effects that must not
// block or fail the request that caused them.
package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/duckieducksrgood/winchpoint/pkg/logging"

	"go.uber.org/zap"
)

type Event interface {
	EventName() string
}

type Handler func(ctx context.Context, e Event) error

var ErrStopped = errors.New("outbox: bus stopped")

type Options struct {
	QueueSize      int
	Concurrency    int
	HandlerTimeout time.Duration
}

// Bus is not durable: events queued at shutdown are drained, events
// published after Stop are rejected.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]Handler
	queue   chan Event
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	pending   sync.WaitGroup

	concurrency int
	timeout     time.Duration
	log         *zap.Logger
}

func NewBus(log *zap.Logger, opts Options) *Bus {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		subs:        make(map[string][]Handler),
		queue:       make(chan Event, opts.QueueSize),
		done:        make(chan struct{}),
		concurrency: opts.Concurrency,
		timeout:     opts.HandlerTimeout,
		log:         log.With(zap.String("component", "outbox")),
	}
}

func (b *Bus) Subscribe(eventName string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go b.dispatchLoop(context.WithoutCancel(ctx))
		b.log.Info("event_bus_started")
	})
}

// Stop closes the queue and waits for queued events to drain or ctx to end.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		close(b.queue)
		b.mu.Unlock()

		select {
		case <-b.done:
		case <-ctx.Done():
			b.log.Warn("event_bus_stop_timeout", zap.Error(ctx.Err()))
		}
		b.log.Info("event_bus_stopped")
	})
}

func (b *Bus) Publish(ctx context.Context, e Event) error {
	if e == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		return ErrStopped
	}
	b.pending.Add(1)
	select {
	case b.queue <- e:
		logging.From(ctx).Debug("event_enqueued", zap.String("event", e.EventName()))
		return nil
	case <-ctx.Done():
		b.pending.Done()
		logging.From(ctx).Warn("event_enqueue_aborted",
			zap.String("event", e.EventName()), zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

// Drain blocks until every event published so far has been handled.
func (b *Bus) Drain() {
	b.pending.Wait()
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for e := range b.queue {
		b.fanout(ctx, e)
		b.pending.Done()
	}
}

func (b *Bus) fanout(ctx context.Context, e Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug("event_dropped_no_subscriber", zap.String("event", name))
		return
	}

	logger := b.log.With(zap.String("event", name))
	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event_handler_panic",
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()
			hctx = logging.Into(hctx, logger)
			if err := h(hctx, e); err != nil {
				logger.Warn("event_handler_error", zap.Error(err))
			}
		}()
	}
	wg.Wait()

	logger.Debug("event_fanned_out", zap.Int("handlers", len(handlers)))
}
