package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

const (
	ansiDim   = "\x1b[2m"
	ansiReset = "\x1b[0m"
)

// ConsoleSink prints each rendering to a writer. Unlike the Telegram sink
// it cannot edit in place, so only lines not yet printed are emitted.
type ConsoleSink struct {
	mu       sync.Mutex
	w        io.Writer
	colorize bool
	printed  map[string]struct{}
}

// NewConsoleSink writes to w, typically os.Stderr. Progress lines are dimmed
// when w is a terminal so they stand apart from the result on stdout.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w, colorize: shouldColorize(w), printed: make(map[string]struct{})}
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (s *ConsoleSink) Update(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		if _, ok := s.printed[line]; ok {
			continue
		}
		s.printed[line] = struct{}{}
		out := line
		if s.colorize {
			out = ansiDim + line + ansiReset
		}
		if _, err := fmt.Fprintln(s.w, out); err != nil {
			return err
		}
	}
	return nil
}

func (s *ConsoleSink) Done(ctx context.Context, text string) error {
	return s.Update(ctx, text)
}

// NoopSink discards every rendering.
type NoopSink struct{}

func (NoopSink) Update(ctx context.Context, text string) error { return nil }
func (NoopSink) Done(ctx context.Context, text string) error   { return nil }
