// SPDX-License-Identifier: MPL-2.0

package clipboard

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/aymanbagabas/go-osc52/v2"
)

// OSC52Sink asks the terminal to set the clipboard with an OSC 52 escape
// sequence. It works over SSH; tmux and screen need the wrapped forms.
type OSC52Sink struct {
	w      io.Writer
	getenv func(string) string
}

// NewOSC52Sink creates a sink writing to w. A nil getenv uses os.Getenv.
func NewOSC52Sink(w io.Writer, getenv func(string) string) *OSC52Sink {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &OSC52Sink{w: w, getenv: getenv}
}

// WriteText writes the escape sequence for text.
func (s *OSC52Sink) WriteText(_ context.Context, text string) error {
	seq := osc52.New(text)
	switch {
	case s.getenv("TMUX") != "":
		seq = seq.Tmux()
	case strings.HasPrefix(s.getenv("TERM"), "screen"):
		seq = seq.Screen()
	}
	if _, err := seq.WriteTo(s.w); err != nil {
		return &WriteError{Sink: "osc52", Err: err}
	}
	return nil
}
