package app_test

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/randomtoy/jokes-go/internal/adapters/jokeapi"
	"github.com/randomtoy/jokes-go/internal/app"
	"github.com/randomtoy/jokes-go/internal/domain"
	"github.com/randomtoy/jokes-go/internal/ports"
)

type sourceFunc func(ctx context.Context) (domain.Joke, error)

func (f sourceFunc) FetchJoke(ctx context.Context) (domain.Joke, error) { return f(ctx) }

type recordingObserver struct {
	mu       sync.Mutex
	started  int
	outcomes []string
}

func (o *recordingObserver) FetchStarted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *recordingObserver) FetchFinished(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) snapshot() (int, []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started, append([]string(nil), o.outcomes...)
}

var chickenJoke = domain.Joke{
	Setup:     "Why did the chicken cross the road?",
	Punchline: "To get to the other side.",
}

func newController(t *testing.T, src ports.JokeSource, opts ...app.Option) *app.FetchController {
	t.Helper()
	c := app.NewFetchController(src, opts...)
	t.Cleanup(c.Close)
	return c
}

func jokeServer(t *testing.T, h http.HandlerFunc) *jokeapi.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return jokeapi.NewClient(&http.Client{Timeout: 200 * time.Millisecond}, srv.URL, slog.Default())
}

func TestFetchController_StartsIdle(t *testing.T) {
	c := newController(t, sourceFunc(func(context.Context) (domain.Joke, error) {
		return chickenJoke, nil
	}))

	if _, ok := c.State().(domain.Idle); !ok {
		t.Fatalf("expected Idle, got %T", c.State())
	}
	if v := c.Snapshot().Version; v != 0 {
		t.Errorf("expected version 0, got %d", v)
	}
}

// A well-formed joke resolves to Success.
func TestFetchResource_Success(t *testing.T) {
	src := jokeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"setup":"Why did the chicken cross the road?","punchline":"To get to the other side."}`))
	})
	c := newController(t, src)

	c.FetchResource(context.Background())

	got, ok := c.State().(domain.Success)
	if !ok {
		t.Fatalf("expected Success, got %#v", c.State())
	}
	if got.Joke.Setup != chickenJoke.Setup || got.Joke.Punchline != chickenJoke.Punchline {
		t.Errorf("unexpected joke: %+v", got.Joke)
	}
	if domain.IsLoading(c.State()) {
		t.Error("loading must be cleared after completion")
	}
}

// Every failure cause ends in the same Failure message.
func TestFetchResource_FailuresCollapse(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		kind    string
	}{
		{
			name: "status 500",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			kind: string(domain.ErrorKindHTTPStatus),
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			},
			kind: string(domain.ErrorKindTransport),
		},
		{
			name: "connection reset",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				hj, ok := w.(http.Hijacker)
				if !ok {
					t.Error("response writer does not support hijacking")
					return
				}
				conn, _, err := hj.Hijack()
				if err != nil {
					t.Errorf("hijack: %v", err)
					return
				}
				if tcp, ok := conn.(*net.TCPConn); ok {
					_ = tcp.SetLinger(0)
				}
				_ = conn.Close()
			},
			kind: string(domain.ErrorKindTransport),
		},
		{
			name: "empty object",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
			kind: string(domain.ErrorKindParse),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			c := newController(t, jokeServer(t, tt.handler), app.WithObserver(obs))

			c.FetchResource(context.Background())

			got, ok := c.State().(domain.Failure)
			if !ok {
				t.Fatalf("expected Failure, got %#v", c.State())
			}
			if got.Message != "Could not fetch a joke. Try again." {
				t.Errorf("unexpected message: %q", got.Message)
			}
			if _, outcomes := obs.snapshot(); len(outcomes) != 1 || outcomes[0] != tt.kind {
				t.Errorf("expected outcome %s, got %v", tt.kind, outcomes)
			}
		})
	}
}

func TestFetchResource_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newController(t, jokeapi.NewClient(&http.Client{Timeout: time.Second}, url, slog.Default()))
	c.FetchResource(context.Background())

	if got, ok := c.State().(domain.Failure); !ok || got.Message != domain.FailureMessage {
		t.Fatalf("expected Failure with generic message, got %#v", c.State())
	}
}

func TestFetchResource_InvalidJokeFromSourceIsFailure(t *testing.T) {
	c := newController(t, sourceFunc(func(context.Context) (domain.Joke, error) {
		return domain.Joke{Setup: "only a setup"}, nil
	}))

	c.FetchResource(context.Background())

	if _, ok := c.State().(domain.Failure); !ok {
		t.Fatalf("expected Failure, got %#v", c.State())
	}
}

func TestFetchResource_TransitionSequence(t *testing.T) {
	gate := make(chan struct{})
	var calls int
	c := newController(t, sourceFunc(func(ctx context.Context) (domain.Joke, error) {
		<-gate
		calls++
		if calls == 1 {
			return chickenJoke, nil
		}
		return domain.Joke{}, domain.NewHTTPStatusError(http.StatusBadGateway, nil)
	}))

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	var kinds []domain.Kind
	var versions []uint64
	next := func() {
		t.Helper()
		select {
		case snap := <-updates:
			kinds = append(kinds, snap.State.Kind())
			versions = append(versions, snap.Version)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for snapshot")
		}
	}

	next()
	for i := 0; i < 2; i++ {
		done := make(chan struct{})
		go func() {
			defer close(done)
			c.FetchResource(context.Background())
		}()
		next()
		gate <- struct{}{}
		next()
		<-done
	}

	want := []domain.Kind{
		domain.KindIdle,
		domain.KindLoading, domain.KindSuccess,
		domain.KindLoading, domain.KindFailure,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], kinds[i])
		}
		if versions[i] != uint64(i) {
			t.Errorf("transition %d: expected version %d, got %d", i, i, versions[i])
		}
	}
}

func TestFetchResource_RecoversAfterFailure(t *testing.T) {
	fail := true
	c := newController(t, sourceFunc(func(context.Context) (domain.Joke, error) {
		if fail {
			return domain.Joke{}, domain.NewTransportError(errors.New("connection refused"))
		}
		return chickenJoke, nil
	}))

	c.FetchResource(context.Background())
	if _, ok := c.State().(domain.Failure); !ok {
		t.Fatalf("expected Failure, got %#v", c.State())
	}

	fail = false
	c.FetchResource(context.Background())
	if _, ok := c.State().(domain.Success); !ok {
		t.Fatalf("expected Success after retry, got %#v", c.State())
	}
}

// The call that entered Loading last decides the state, and the
// superseded call is canceled and discarded.
func TestFetchResource_LatestWins(t *testing.T) {
	first := domain.Joke{Setup: "first setup", Punchline: "first punchline"}
	second := domain.Joke{Setup: "second setup", Punchline: "second punchline"}

	for run := 0; run < 25; run++ {
		started := make(chan struct{})
		var calls int
		var mu sync.Mutex

		obs := &recordingObserver{}
		c := app.NewFetchController(sourceFunc(func(ctx context.Context) (domain.Joke, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				close(started)
				<-ctx.Done()
				return first, domain.NewTransportError(ctx.Err())
			}
			return second, nil
		}), app.WithObserver(obs))

		done := make(chan struct{})
		go func() {
			defer close(done)
			c.FetchResource(context.Background())
		}()
		<-started

		c.FetchResource(context.Background())
		<-done

		got, ok := c.State().(domain.Success)
		if !ok || got.Joke != second {
			t.Fatalf("run %d: expected Success(second), got %#v", run, c.State())
		}
		_, outcomes := obs.snapshot()
		counts := map[string]int{}
		for _, o := range outcomes {
			counts[o]++
		}
		if len(outcomes) != 2 || counts[ports.OutcomeSuccess] != 1 || counts[ports.OutcomeStale] != 1 {
			t.Fatalf("run %d: unexpected outcomes %v", run, outcomes)
		}
		c.Close()
	}
}

func TestFetchResource_LateStaleResponseIsDiscarded(t *testing.T) {
	stale := domain.Joke{Setup: "stale setup", Punchline: "stale punchline"}
	fresh := domain.Joke{Setup: "fresh setup", Punchline: "fresh punchline"}

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	c := newController(t, sourceFunc(func(context.Context) (domain.Joke, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(started)
			// Ignores cancellation and answers late.
			<-release
			return stale, nil
		}
		return fresh, nil
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.FetchResource(context.Background())
	}()
	<-started

	c.FetchResource(context.Background())
	version := c.Snapshot().Version

	close(release)
	<-done

	got, ok := c.State().(domain.Success)
	if !ok || got.Joke != fresh {
		t.Fatalf("expected Success(fresh), got %#v", c.State())
	}
	if v := c.Snapshot().Version; v != version {
		t.Errorf("stale response changed the state: version %d -> %d", version, v)
	}
}

func TestTrigger_EntersLoadingImmediately(t *testing.T) {
	release := make(chan struct{})
	c := newController(t, sourceFunc(func(ctx context.Context) (domain.Joke, error) {
		select {
		case <-release:
			return chickenJoke, nil
		case <-ctx.Done():
			return domain.Joke{}, domain.NewTransportError(ctx.Err())
		}
	}))

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()
	<-updates

	c.Trigger()
	if !domain.IsLoading(c.State()) {
		t.Fatalf("expected Loading right after Trigger, got %#v", c.State())
	}

	close(release)
	for {
		select {
		case snap := <-updates:
			if _, ok := snap.State.(domain.Success); ok {
				return
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for Success, state %#v", c.State())
		}
	}
}

func TestClose_CancelsInFlightFetch(t *testing.T) {
	c := app.NewFetchController(sourceFunc(func(ctx context.Context) (domain.Joke, error) {
		<-ctx.Done()
		return domain.Joke{}, domain.NewTransportError(ctx.Err())
	}))

	c.Trigger()

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	// No further fetches start after Close.
	c.Trigger()
	if _, ok := c.State().(domain.Failure); !ok {
		t.Errorf("expected Failure after canceled fetch, got %#v", c.State())
	}
}

func TestSubscribe_SlowSubscriberSeesLatest(t *testing.T) {
	n := 0
	c := newController(t, sourceFunc(func(context.Context) (domain.Joke, error) {
		n++
		if n%2 == 0 {
			return domain.Joke{}, domain.NewParseError(domain.ErrMissingFields)
		}
		return chickenJoke, nil
	}))

	updates, unsubscribe := c.Subscribe()
	for i := 0; i < 3; i++ {
		c.FetchResource(context.Background())
	}

	snap := <-updates
	if snap.Version != c.Snapshot().Version {
		t.Errorf("expected latest version %d, got %d", c.Snapshot().Version, snap.Version)
	}
	if _, ok := snap.State.(domain.Success); !ok {
		t.Errorf("expected Success, got %#v", snap.State)
	}

	unsubscribe()
	if _, ok := <-updates; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	unsubscribe()
}
