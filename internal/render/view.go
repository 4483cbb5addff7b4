// Package render turns a FetchState into the copy and controls shown to the
// user. It holds no state of its own.
package render

import (
	"strings"

	"github.com/randomtoy/jokes-go/internal/domain"
)

const (
	Title       = "Random Joke"
	ButtonText  = "Fetch Joke"
	BusyText    = "Fetching..."
	EmptyText   = "No Joke Yet."
	errorHeader = "Could not fetch a joke."
	errorHint   = "Try again."
)

// Tone tells the renderer how to style a line.
type Tone string

const (
	ToneMuted     Tone = "muted"
	ToneSetup     Tone = "setup"
	TonePunchline Tone = "punchline"
	ToneError     Tone = "error"
)

type Line struct {
	Text string
	Tone Tone
}

type Button struct {
	Text     string
	Disabled bool
	Busy     bool
}

// View is everything a renderer needs for one state.
type View struct {
	Title  string
	Kind   domain.Kind
	Lines  []Line
	Button Button
}

// Render builds the view for s. The button is disabled and busy while a
// fetch is in flight.
func Render(s domain.FetchState) View {
	v := View{
		Title:  Title,
		Kind:   s.Kind(),
		Button: Button{Text: ButtonText},
	}

	switch st := s.(type) {
	case domain.Success:
		v.Lines = []Line{
			{Text: st.Joke.Setup, Tone: ToneSetup},
			{Text: st.Joke.Punchline, Tone: TonePunchline},
		}
	case domain.Failure:
		v.Lines = []Line{
			{Text: errorHeader, Tone: ToneError},
			{Text: errorHint, Tone: ToneError},
		}
	case domain.Loading:
		v.Lines = []Line{{Text: EmptyText, Tone: ToneMuted}}
		v.Button = Button{Text: BusyText, Disabled: true, Busy: true}
	default:
		v.Lines = []Line{{Text: EmptyText, Tone: ToneMuted}}
	}

	return v
}

// String renders v as plain text for terminals.
func (v View) String() string {
	var b strings.Builder
	b.WriteString(v.Title)
	b.WriteString("\n\n")
	for _, l := range v.Lines {
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
