package jokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/randomtoy/jokes-go/internal/domain"
)

// DefaultEndpoint serves one random joke per GET.
const DefaultEndpoint = "https://official-joke-api.appspot.com/random_joke"

const (
	maxBodyBytes = 1 << 20
	// maxErrorBody bounds how much of an error body ends up in logs.
	maxErrorBody = 256
	userAgent    = "jokes-go"
)

// Client implements ports.JokeSource over the official joke API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	logger     *slog.Logger
}

func NewClient(httpClient *http.Client, endpoint string, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		logger:     logger,
	}
}

// jokeResponse mirrors the upstream body. Unknown fields are ignored.
type jokeResponse struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	Setup     string `json:"setup"`
	Punchline string `json:"punchline"`
}

// FetchJoke issues a single GET and returns the decoded joke. Every failure
// is a *domain.FetchError.
func (c *Client) FetchJoke(ctx context.Context) (domain.Joke, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return domain.Joke{}, domain.NewTransportError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Joke{}, domain.NewTransportError(fmt.Errorf("http call: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.Joke{}, domain.NewTransportError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Joke{}, domain.NewHTTPStatusError(resp.StatusCode,
			fmt.Errorf("body: %s", truncate(body, maxErrorBody)))
	}

	var jr jokeResponse
	if err := json.Unmarshal(body, &jr); err != nil {
		return domain.Joke{}, domain.NewParseError(fmt.Errorf("decode response: %w", err))
	}

	joke := domain.Joke{
		ID:        jr.ID,
		Type:      jr.Type,
		Setup:     strings.TrimSpace(jr.Setup),
		Punchline: strings.TrimSpace(jr.Punchline),
	}
	if !joke.Valid() {
		return domain.Joke{}, domain.NewParseError(domain.ErrMissingFields)
	}

	c.logger.DebugContext(ctx, "joke received", "id", joke.ID, "type", joke.Type)
	return joke, nil
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
