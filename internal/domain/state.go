package domain

import "time"

// FailureMessage is the only message a Failure ever carries, whatever the cause.
const FailureMessage = "Could not fetch a joke. Try again."

// Kind names the active variant of a FetchState.
type Kind string

const (
	KindIdle    Kind = "idle"
	KindLoading Kind = "loading"
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
)

// FetchState is the lifecycle state of the joke request. The set of
// implementations is closed: Idle, Loading, Success and Failure.
type FetchState interface {
	Kind() Kind
	fetchState()
}

// Idle means no fetch has been attempted yet.
type Idle struct{}

// Loading means a fetch is in flight. It carries no payload.
type Loading struct{}

// Success holds the joke of the last completed fetch.
type Success struct {
	Joke Joke
}

// Failure holds the user-facing message of the last failed fetch.
type Failure struct {
	Message string
}

func (Idle) Kind() Kind    { return KindIdle }
func (Loading) Kind() Kind { return KindLoading }
func (Success) Kind() Kind { return KindSuccess }
func (Failure) Kind() Kind { return KindFailure }

func (Idle) fetchState()    {}
func (Loading) fetchState() {}
func (Success) fetchState() {}
func (Failure) fetchState() {}

// IsLoading reports whether s is the Loading variant.
func IsLoading(s FetchState) bool {
	_, ok := s.(Loading)
	return ok
}

// Snapshot is an immutable view of the state at one transition.
// Version increases by one on every transition.
type Snapshot struct {
	Version uint64
	State   FetchState
	At      time.Time
}
