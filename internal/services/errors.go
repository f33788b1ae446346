package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers tagged onto stage errors. The pipeline boundary classifies
// failures with errors.Is against these rather than string matching.
var (
	// ErrNoCaptions signals the expected "video has no caption tracks" outcome.
	// It triggers fallback to transcription and is never reported as a failure.
	ErrNoCaptions = errors.New("no captions available")
	// ErrTransient marks network-level failures (download, upload, API transport).
	ErrTransient = errors.New("transient failure")
	// ErrRemoteJob marks a terminal failure reported by the speech-to-text service.
	ErrRemoteJob = errors.New("remote job failed")
	// ErrTransportUnsupported marks a proxy/transport capability gap with a direct
	// operator remedy (disable the proxy or install the missing transport).
	ErrTransportUnsupported = errors.New("transport unsupported")
	// ErrEmptyContent marks payloads that parsed cleanly but yielded no usable text.
	ErrEmptyContent = errors.New("empty content")
	// ErrValidation marks caller mistakes (bad URL, empty input).
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration discovered at run time.
	ErrConfiguration = errors.New("configuration error")
	// ErrPersistence marks artifact/store write failures; never fatal to a run.
	ErrPersistence = errors.New("persistence failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFallbackSignal reports whether a caption-path error should route the
// pipeline to the transcription strategy. Any caption failure qualifies; the
// distinction only affects how the fallback is logged.
func IsFallbackSignal(err error) bool {
	return err != nil
}

// IsExpected reports whether the error represents the non-exceptional
// "no captions" outcome rather than a genuine failure.
func IsExpected(err error) bool {
	return errors.Is(err, ErrNoCaptions)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
