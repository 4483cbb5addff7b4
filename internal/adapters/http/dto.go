package http

import (
	"time"

	"github.com/randomtoy/jokes-go/internal/domain"
)

// JokeStateResponse is the JSON shape of a state snapshot, returned by
// GET /v1/joke and pushed over /v1/joke/ws.
type JokeStateResponse struct {
	State     domain.Kind `json:"state"`
	Version   uint64      `json:"version"`
	Loading   bool        `json:"loading"`
	Setup     string      `json:"setup,omitempty"`
	Punchline string      `json:"punchline,omitempty"`
	JokeID    int         `json:"joke_id,omitempty"`
	Error     string      `json:"error,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// streamCommand is a client message on /v1/joke/ws.
type streamCommand struct {
	Type string `json:"type"`
}

func toStateResponse(s domain.Snapshot) JokeStateResponse {
	r := JokeStateResponse{
		State:     s.State.Kind(),
		Version:   s.Version,
		Loading:   domain.IsLoading(s.State),
		UpdatedAt: s.At.UTC(),
	}
	switch st := s.State.(type) {
	case domain.Success:
		r.Setup = st.Joke.Setup
		r.Punchline = st.Joke.Punchline
		r.JokeID = st.Joke.ID
	case domain.Failure:
		r.Error = st.Message
	}
	return r
}
