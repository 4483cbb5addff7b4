package ports

import (
	"context"

	"github.com/randomtoy/jokes-go/internal/domain"
)

// JokeSource performs the single upstream call behind a fetch.
// Failures are reported as *domain.FetchError.
type JokeSource interface {
	FetchJoke(ctx context.Context) (domain.Joke, error)
}
