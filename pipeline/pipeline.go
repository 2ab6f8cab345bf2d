// Package pipeline runs texts through an analysis function on a pool of
// workers and hands back completions in submission order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("pipeline: closed")

// ErrNotStarted is returned by Submit before Start.
var ErrNotStarted = errors.New("pipeline: not started")

// Config sizes the worker pool and queues.
type Config struct {
	Workers int // concurrent calls of the function, default 4
	Buffer  int // queued segments and undelivered results, default 64
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Buffer <= 0 {
		c.Buffer = 64
	}
	return c
}

// Segment is one submitted text.
type Segment struct {
	Seq  uint64    `json:"seq"`
	ID   uuid.UUID `json:"id"`
	Text string    `json:"-"`
}

// Completed is the outcome of one segment.
type Completed[T any] struct {
	Segment  Segment       `json:"segment"`
	Value    T             `json:"value"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Func processes one text.
type Func[T any] func(ctx context.Context, text string) T

// Pipeline is a bounded producer/consumer queue. Segments are numbered from
// zero in Submit order and Results yields them in that order whatever the
// number of workers.
type Pipeline[T any] struct {
	fn  Func[T]
	cfg Config

	in   chan Segment
	done chan Completed[T]
	out  chan Completed[T]
	quit chan struct{}

	// sendMu serialises sends on in and guards next; mu guards the
	// lifecycle flags and is never held while blocking.
	sendMu  sync.Mutex
	next    uint64
	mu      sync.Mutex
	closed  bool
	started bool
	ctx     context.Context
}

// New returns a pipeline that applies fn to every submitted text.
func New[T any](fn Func[T], cfg Config) *Pipeline[T] {
	cfg = cfg.withDefaults()
	return &Pipeline[T]{
		fn:   fn,
		cfg:  cfg,
		in:   make(chan Segment, cfg.Buffer),
		done: make(chan Completed[T], cfg.Workers),
		out:  make(chan Completed[T], cfg.Buffer),
		quit: make(chan struct{}),
	}
}

// Start launches the workers. Work stops when ctx is done; segments still
// queued at that point are dropped and Results is closed.
func (p *Pipeline[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return fmt.Errorf("pipeline already started")
	}
	p.started = true
	p.ctx = ctx
	p.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx)
		}()
	}
	go func() {
		wg.Wait()
		close(p.done)
	}()
	go p.resequence()

	slog.Debug("pipeline: started", "workers", p.cfg.Workers, "buffer", p.cfg.Buffer)
	return nil
}

// Submit queues text and returns its segment. It blocks while the queue is
// full, until ctx or the pipeline's context is done or Close is called.
func (p *Pipeline[T]) Submit(ctx context.Context, text string) (Segment, error) {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.mu.Lock()
	closed, started, pctx := p.closed, p.started, p.ctx
	p.mu.Unlock()
	if closed {
		return Segment{}, ErrClosed
	}
	if !started {
		return Segment{}, ErrNotStarted
	}
	if pctx.Err() != nil {
		return Segment{}, ErrClosed
	}

	seg := Segment{Seq: p.next, ID: uuid.New(), Text: text}
	// next only advances once the segment is queued; the resequencer
	// relies on there being no gaps.
	select {
	case p.in <- seg:
		p.next++
		return seg, nil
	case <-ctx.Done():
		return Segment{}, ctx.Err()
	case <-pctx.Done():
		return Segment{}, ErrClosed
	case <-p.quit:
		return Segment{}, ErrClosed
	}
}

// Results yields completions in submission order. It is closed once Close
// has been called and every queued segment has been delivered.
func (p *Pipeline[T]) Results() <-chan Completed[T] {
	return p.out
}

// Close stops accepting segments. Queued segments are still processed; a
// Submit blocked on a full queue returns ErrClosed. Close may be called from
// any goroutine.
func (p *Pipeline[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.quit)
	p.mu.Unlock()

	// Wait for an in-flight send to finish or give up before closing in.
	p.sendMu.Lock()
	close(p.in)
	p.sendMu.Unlock()
}

func (p *Pipeline[T]) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case seg, ok := <-p.in:
			if !ok {
				return
			}
			c := p.run(ctx, seg)
			select {
			case p.done <- c:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Pipeline[T]) run(ctx context.Context, seg Segment) (c Completed[T]) {
	start := time.Now()
	c.Segment = seg
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline: segment panicked", "seq", seg.Seq, "id", seg.ID, "panic", r)
			var zero T
			c.Value = zero
			c.Err = fmt.Errorf("segment %d panicked: %v", seg.Seq, r)
		}
		c.Duration = time.Since(start)
	}()
	c.Value = p.fn(ctx, seg.Text)
	return c
}

// resequence reorders worker output by sequence number.
func (p *Pipeline[T]) resequence() {
	defer close(p.out)
	pending := make(map[uint64]Completed[T])
	var next uint64
	for c := range p.done {
		pending[c.Segment.Seq] = c
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			select {
			case p.out <- ready:
			case <-p.ctx.Done():
				return
			}
			next++
		}
	}
	if len(pending) > 0 {
		slog.Warn("pipeline: dropped out-of-order completions", "count", len(pending))
	}
}
