// Package artifacts persists run outputs as plain-text files under the
// configured results directory.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Record is everything worth writing down about a finished run.
type Record struct {
	SourceURL  string
	Provenance string
	Language   string
	Transcript string
	Summary    string
}

// Store writes records into a directory.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore targets dir, creating it lazily on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// WithClock overrides the time source (for testing).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Save writes the record and returns the file path. Filenames carry a
// timestamp so repeated runs of the same video never clobber each other.
func (s *Store) Save(rec Record) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	name := fmt.Sprintf("recap_%s.txt", s.now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Source: %s\n", rec.SourceURL)
	fmt.Fprintf(&sb, "Provenance: %s\n", rec.Provenance)
	if rec.Language != "" {
		fmt.Fprintf(&sb, "Language: %s\n", rec.Language)
	}
	fmt.Fprintf(&sb, "Saved: %s\n", s.now().Format(time.RFC3339))
	sb.WriteString("\n=== Transcript ===\n\n")
	sb.WriteString(strings.TrimSpace(rec.Transcript))
	sb.WriteString("\n")
	if rec.Summary != "" {
		sb.WriteString("\n=== Summary ===\n\n")
		sb.WriteString(strings.TrimSpace(rec.Summary))
		sb.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}
