package domain

import "strings"

// Joke is a single setup/punchline pair returned by the upstream API.
type Joke struct {
	ID        int    `json:"id,omitempty"`
	Type      string `json:"type,omitempty"`
	Setup     string `json:"setup"`
	Punchline string `json:"punchline"`
}

// Valid reports whether both the setup and the punchline are present.
func (j Joke) Valid() bool {
	return strings.TrimSpace(j.Setup) != "" && strings.TrimSpace(j.Punchline) != ""
}
