// Package media defines the video reference type the pipeline operates on.
package media

import (
	"fmt"
	"regexp"
	"strings"
)

// youtubeRE matches the YouTube URL shapes users paste: watch, share, embed.
var youtubeRE = regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:youtube|youtu|youtube-nocookie)\.(?:com|be)/(?:watch\?v=|embed/|v/|.+\?v=)?([^&=%?/\s]{11})`)

// Reference identifies a source video. Immutable once created.
type Reference struct {
	url     string
	videoID string
}

// Parse builds a Reference from raw user input. YouTube links are
// canonicalized to the watch URL; anything else that looks like a URL is
// passed through opaquely for the downloader to judge.
func Parse(raw string) (Reference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Reference{}, fmt.Errorf("video reference is empty")
	}
	if m := youtubeRE.FindStringSubmatch(trimmed); m != nil {
		id := m[1]
		return Reference{url: "https://www.youtube.com/watch?v=" + id, videoID: id}, nil
	}
	if !strings.Contains(trimmed, "://") {
		return Reference{}, fmt.Errorf("video reference %q is not a URL", trimmed)
	}
	return Reference{url: trimmed}, nil
}

// ExtractFromText finds the first YouTube link inside free-form text, as
// pasted into a chat message. ok is false when no link is present.
func ExtractFromText(text string) (Reference, bool) {
	m := youtubeRE.FindStringSubmatch(text)
	if m == nil {
		return Reference{}, false
	}
	id := m[1]
	return Reference{url: "https://www.youtube.com/watch?v=" + id, videoID: id}, true
}

// URL returns the canonical URL for the reference.
func (r Reference) URL() string { return r.url }

// VideoID returns the provider video ID when known, otherwise "".
func (r Reference) VideoID() string { return r.videoID }

// IsZero reports whether the reference is unset.
func (r Reference) IsZero() bool { return r.url == "" }

func (r Reference) String() string { return r.url }
