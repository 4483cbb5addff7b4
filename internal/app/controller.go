package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/randomtoy/jokes-go/internal/domain"
	"github.com/randomtoy/jokes-go/internal/ports"
)

const tracerName = "github.com/randomtoy/jokes-go/internal/app"

// FetchController owns the joke FetchState and is the only place it changes.
//
// Re-entrant calls follow latest-wins: every FetchResource call takes a new
// generation and cancels the one before it. A call whose generation is no
// longer current when its response arrives is discarded without touching the
// state.
type FetchController struct {
	source   ports.JokeSource
	observer ports.FetchObserver
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	mu         sync.Mutex
	state      domain.FetchState
	version    uint64
	at         time.Time
	generation uint64
	cancel     context.CancelFunc
	subs       map[uint64]chan domain.Snapshot
	nextSub    uint64
	closed     bool

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// Option configures a FetchController.
type Option func(*FetchController)

func WithObserver(o ports.FetchObserver) Option {
	return func(c *FetchController) { c.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *FetchController) { c.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *FetchController) { c.tracer = t }
}

// WithClock overrides the time source used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(c *FetchController) { c.now = now }
}

// NewFetchController returns a controller in the Idle state.
func NewFetchController(src ports.JokeSource, opts ...Option) *FetchController {
	c := &FetchController{
		source:   src,
		observer: nopObserver{},
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		state:    domain.Idle{},
		subs:     make(map[uint64]chan domain.Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.at = c.now()
	c.ctx, c.stop = context.WithCancel(context.Background())
	return c
}

// State returns the current state.
func (c *FetchController) State() domain.FetchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current state with its version.
func (c *FetchController) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// FetchResource moves to Loading, calls the source once and resolves the
// state to Success or Failure. It blocks until the call returns; the outcome
// is observed through State. If another call starts meanwhile, this call's
// result is dropped.
func (c *FetchController) FetchResource(ctx context.Context) {
	gen, fetchCtx, done := c.begin(ctx)
	defer done()
	c.run(fetchCtx, gen)
}

// Trigger is the non-blocking form of FetchResource. The Loading transition
// has happened by the time it returns; the call itself runs in the
// background until it resolves or Close is called.
func (c *FetchController) Trigger() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	gen, fetchCtx, done := c.begin(c.ctx)
	go func() {
		defer c.wg.Done()
		defer done()
		c.run(fetchCtx, gen)
	}()
}

// Subscribe returns a channel that receives the current snapshot and then
// every later one. A subscriber that falls behind skips to the newest
// snapshot. The returned func unsubscribes and closes the channel.
func (c *FetchController) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Close cancels any in-flight fetch, waits for triggered fetches to return
// and closes all subscriptions.
func (c *FetchController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.stop()
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// begin starts a new generation, supersedes the previous one and enters
// Loading. The returned func must be called when the fetch returns.
func (c *FetchController) begin(parent context.Context) (uint64, context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	stopAfter := context.AfterFunc(c.ctx, cancel)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	c.cancel = cancel
	c.setLocked(domain.Loading{})

	return c.generation, ctx, func() {
		stopAfter()
		cancel()
	}
}

func (c *FetchController) run(ctx context.Context, gen uint64) {
	ctx, span := c.tracer.Start(ctx, "jokes.fetch",
		trace.WithAttributes(attribute.Int64("jokes.generation", int64(gen))),
	)
	defer span.End()

	c.observer.FetchStarted()
	start := time.Now()
	joke, err := c.source.FetchJoke(ctx)
	elapsed := time.Since(start)

	next, cause := resolve(joke, err)
	if !c.commit(gen, next) {
		c.observer.FetchFinished(ports.OutcomeStale, elapsed)
		span.SetAttributes(attribute.String("jokes.outcome", ports.OutcomeStale))
		c.logger.DebugContext(ctx, "discarding superseded joke response", "generation", gen)
		return
	}

	if cause != nil {
		kind := domain.ErrorKindOf(cause)
		c.observer.FetchFinished(string(kind), elapsed)
		span.SetAttributes(attribute.String("jokes.outcome", string(kind)))
		span.RecordError(cause)
		span.SetStatus(codes.Error, string(kind))
		c.logger.WarnContext(ctx, "failed to fetch joke",
			"generation", gen,
			"cause", kind,
			"latency_ms", elapsed.Milliseconds(),
			"error", cause,
		)
		return
	}

	c.observer.FetchFinished(ports.OutcomeSuccess, elapsed)
	span.SetAttributes(attribute.String("jokes.outcome", ports.OutcomeSuccess))
	c.logger.DebugContext(ctx, "fetched joke", "generation", gen, "latency_ms", elapsed.Milliseconds())
}

// commit applies next if gen is still the current generation.
func (c *FetchController) commit(gen uint64, next domain.FetchState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.cancel = nil
	c.setLocked(next)
	return true
}

func (c *FetchController) setLocked(next domain.FetchState) {
	c.state = next
	c.version++
	c.at = c.now()

	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			// Replace the unread snapshot. Sends only happen under mu.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (c *FetchController) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{Version: c.version, State: c.state, At: c.at}
}

// resolve maps a source result onto the next state. The error is the
// diagnostic cause of a Failure and nil for Success.
func resolve(joke domain.Joke, err error) (domain.FetchState, error) {
	if err == nil && !joke.Valid() {
		err = domain.NewParseError(domain.ErrMissingFields)
	}
	if err != nil {
		return domain.Failure{Message: domain.FailureMessage}, err
	}
	return domain.Success{Joke: joke}, nil
}

type nopObserver struct{}

func (nopObserver) FetchStarted()                       {}
func (nopObserver) FetchFinished(string, time.Duration) {}
