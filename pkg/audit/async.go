package audit

import (
	"context"
	"sync"
	"time"
)

// AsyncOptions tunes an AsyncWriter. Zero values select the defaults.
type AsyncOptions struct {
	BufferSize     int           // events queued before Store falls back to a direct write; default 1000
	BatchSize      int           // events per flush; default 100
	BatchTimeout   time.Duration // max wait for a partial batch; default 100ms
	StorageTimeout time.Duration // per flush; default 5s
}

// AsyncWriter batches events from concurrent callers into StoreBatch calls.
// Store blocks until the batch holding the event has been flushed.
type AsyncWriter struct {
	storage BatchStorage
	queue   chan pending
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	opts    AsyncOptions
}

type pending struct {
	event  Event
	result chan error
}

// NewAsyncWriter starts the flush worker. The returned function stops it
// after flushing what is queued.
func NewAsyncWriter(storage BatchStorage, opts AsyncOptions) (*AsyncWriter, func(context.Context) error) {
	if storage == nil {
		panic("audit: batch storage cannot be nil")
	}

	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 100 * time.Millisecond
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}

	w := &AsyncWriter{
		storage: storage,
		queue:   make(chan pending, opts.BufferSize),
		done:    make(chan struct{}),
		opts:    opts,
	}

	w.wg.Add(1)
	go w.worker()

	return w, w.Close
}

// Store queues event and waits for its batch. With a full buffer the event is
// written directly so it is not dropped.
func (w *AsyncWriter) Store(ctx context.Context, event Event) error {
	result := make(chan error, 1)

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrStorageNotAvailable
	}
	select {
	case w.queue <- pending{event: event, result: result}:
		w.mu.RUnlock()
	default:
		w.mu.RUnlock()
		return w.storage.StoreBatch(ctx, []Event{event})
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *AsyncWriter) worker() {
	defer w.wg.Done()

	events := make([]Event, 0, w.opts.BatchSize)
	results := make([]chan error, 0, w.opts.BatchSize)

	ticker := time.NewTicker(w.opts.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(events) == 0 {
			return
		}

		// Detached from callers so one cancelled request does not fail the batch.
		ctx, cancel := context.WithTimeout(context.Background(), w.opts.StorageTimeout)
		err := w.storage.StoreBatch(ctx, events)
		cancel()

		for _, ch := range results {
			ch <- err
		}

		clear(events)
		clear(results)
		events = events[:0]
		results = results[:0]
	}

	add := func(p pending) {
		events = append(events, p.event)
		results = append(results, p.result)
		if len(events) >= w.opts.BatchSize {
			flush()
		}
	}

	for {
		select {
		case p := <-w.queue:
			add(p)
		case <-ticker.C:
			flush()
		case <-w.done:
			for {
				select {
				case p := <-w.queue:
					add(p)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops the worker after flushing queued events. It returns ctx.Err()
// if the flush does not finish in time.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.done)
	}
	w.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
