package captions

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"recap/internal/logging"
	"recap/internal/media"
	"recap/internal/services"
)

// Track is one caption delivery option within a language.
type Track struct {
	Format string
	URL    string
}

// Tracks is everything a provider knows about a video's captions, keyed by
// language code. Manual tracks are authored; Auto tracks are generated.
type Tracks struct {
	Manual map[string][]Track
	Auto   map[string][]Track
}

// Empty reports whether the video carries no captions at all.
func (t Tracks) Empty() bool {
	return len(t.Manual) == 0 && len(t.Auto) == 0
}

// Provider lists and fetches caption tracks. Implementations are thin
// collaborators; the selection logic lives in Strategy.
type Provider interface {
	ListTracks(ctx context.Context, ref media.Reference) (Tracks, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Result is the extracted caption text plus its provenance details.
type Result struct {
	Text     string
	Language string
	Format   string
}

// Strategy extracts caption text according to language and format preferences.
type Strategy struct {
	provider  Provider
	languages []string
	formats   []string
	logger    *slog.Logger
}

// NewStrategy builds a caption strategy. Empty preference lists fall back to
// whatever the provider offers, in stable order.
func NewStrategy(provider Provider, languages, formats []string, logger *slog.Logger) *Strategy {
	return &Strategy{
		provider:  provider,
		languages: languages,
		formats:   formats,
		logger:    logging.NewComponentLogger(logger, "captions"),
	}
}

// Extract returns the caption text for ref, or (nil, nil) when the video has
// no captions at all, which is an expected outcome rather than an error.
// Listing and fetch failures are returned as errors; the pipeline treats
// every error here as a fallback signal.
func (s *Strategy) Extract(ctx context.Context, ref media.Reference) (*Result, error) {
	tracks, err := s.provider.ListTracks(ctx, ref)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "captions", "list tracks", "", err)
	}
	if tracks.Empty() {
		s.logger.Info("no caption tracks available", logging.String(logging.FieldVideo, ref.URL()))
		return nil, nil
	}

	byLang := tracks.Manual
	source := "manual"
	if len(byLang) == 0 {
		byLang = tracks.Auto
		source = "auto"
	}

	lang := s.selectLanguage(byLang)
	options := byLang[lang]
	track, format := s.selectFormat(options)
	if track.URL == "" {
		return nil, services.Wrap(services.ErrTransient, "captions", "select track", "track has no URL for language "+lang, nil)
	}

	s.logger.Info("caption track selected",
		logging.String("language", lang),
		logging.String("format", format),
		logging.String("source", source),
	)

	payload, err := s.provider.Fetch(ctx, track.URL)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "captions", "fetch", "language "+lang, err)
	}

	text := Normalize(payload, format)
	if text == "" {
		return nil, services.Wrap(services.ErrEmptyContent, "captions", "normalize", "payload yielded no text", nil)
	}

	return &Result{Text: text, Language: lang, Format: format}, nil
}

// selectLanguage picks the first preferred language carrying at least one
// track. Region-variant matches (pref "zh" against available "zh-Hans") are
// accepted when no exact key matches. With no preference hit it falls back to
// the first available language in stable order.
func (s *Strategy) selectLanguage(byLang map[string][]Track) string {
	available := make([]string, 0, len(byLang))
	for lang, tracks := range byLang {
		if len(tracks) > 0 {
			available = append(available, lang)
		}
	}
	sort.Strings(available)
	if len(available) == 0 {
		return ""
	}

	for _, pref := range s.languages {
		for _, lang := range available {
			if strings.EqualFold(lang, pref) {
				return lang
			}
		}
	}

	if lang, ok := matchVariant(s.languages, available); ok {
		return lang
	}
	return available[0]
}

// matchVariant uses language tag matching so a bare preference like "zh" can
// claim a regional track like "zh-Hans".
func matchVariant(prefs, available []string) (string, bool) {
	tags := make([]language.Tag, 0, len(available))
	kept := make([]string, 0, len(available))
	for _, lang := range available {
		tag, err := language.Parse(lang)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		kept = append(kept, lang)
	}
	if len(tags) == 0 {
		return "", false
	}
	matcher := language.NewMatcher(tags)
	for _, pref := range prefs {
		tag, err := language.Parse(pref)
		if err != nil {
			continue
		}
		if _, idx, conf := matcher.Match(tag); conf >= language.High {
			return kept[idx], true
		}
	}
	return "", false
}

// selectFormat picks by the fixed format preference order, falling back to
// the first offered track.
func (s *Strategy) selectFormat(options []Track) (Track, string) {
	for _, pref := range s.formats {
		for _, track := range options {
			if strings.EqualFold(track.Format, pref) {
				return track, track.Format
			}
		}
	}
	if len(options) > 0 {
		format := options[0].Format
		if format == "" {
			format = "unknown"
		}
		return options[0], format
	}
	return Track{}, ""
}
