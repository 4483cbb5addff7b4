package ports

import "time"

// Outcomes reported to a FetchObserver. Failures use the string form of
// domain.ErrorKind.
const (
	OutcomeSuccess = "success"
	OutcomeStale   = "stale"
)

// FetchObserver is notified around every fetch, including superseded ones.
type FetchObserver interface {
	FetchStarted()
	FetchFinished(outcome string, elapsed time.Duration)
}
