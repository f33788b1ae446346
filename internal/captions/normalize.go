package captions

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	markupTagRE  = regexp.MustCompile(`<[^>]+>`)
	cueNumberRE  = regexp.MustCompile(`^\d+$`)
	timestampRE  = regexp.MustCompile(`\d{1,2}:\d{2}(:\d{2})?[.,]\d{3}`)
	multiSpaceRE = regexp.MustCompile(`\s+`)
)

// Normalize converts a caption payload to plain text by stripping timing
// cues, cue identifiers, and markup. json3 payloads are parsed structurally;
// everything else goes through line filtering.
func Normalize(payload []byte, format string) string {
	if strings.EqualFold(format, "json3") {
		return normalizeJSON3(payload)
	}
	return normalizeTimedText(string(payload))
}

// json3Payload mirrors the fields of YouTube's JSON caption format we need.
type json3Payload struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func normalizeJSON3(payload []byte) string {
	var parsed json3Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return ""
	}
	var sb strings.Builder
	for _, event := range parsed.Events {
		for _, seg := range event.Segs {
			text := strings.TrimSpace(seg.UTF8)
			if text == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(text)
		}
	}
	return collapseSpaces(sb.String())
}

func normalizeTimedText(payload string) string {
	var sb strings.Builder
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.Contains(line, "-->"):
		case cueNumberRE.MatchString(line):
		case strings.HasPrefix(line, "WEBVTT"),
			strings.HasPrefix(line, "Kind:"),
			strings.HasPrefix(line, "Language:"),
			strings.HasPrefix(line, "NOTE"),
			strings.HasPrefix(line, "STYLE"):
		default:
			// Markup formats carry timing in tag attributes; strip tags
			// first, then any bare timestamps that survive.
			text := markupTagRE.ReplaceAllString(line, " ")
			text = timestampRE.ReplaceAllString(text, " ")
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			sb.WriteString(text)
			sb.WriteByte(' ')
		}
	}
	return collapseSpaces(sb.String())
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(multiSpaceRE.ReplaceAllString(s, " "))
}
