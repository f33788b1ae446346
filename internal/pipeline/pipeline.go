// Package pipeline sequences caption extraction, the transcription
// fallback, and summarization into a single run, assembling an Outcome the
// caller owns once the run completes.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"recap/internal/artifacts"
	"recap/internal/captions"
	"recap/internal/logging"
	"recap/internal/media"
	"recap/internal/progress"
	"recap/internal/runstore"
	"recap/internal/services"
	"recap/internal/transcribe"
)

// Provenance values recorded on an Outcome.
const (
	ProvenanceCaptioned   = "captioned"
	ProvenanceTranscribed = "transcribed"
)

// Error kinds recorded on a failed Outcome.
const (
	KindNoText               = "NoTextAvailable"
	KindTransientNetwork     = "TransientNetwork"
	KindRemoteJobFailed      = "RemoteJobFailed"
	KindTransportUnsupported = "TransportUnsupported"
	KindEmptyContent         = "EmptyContent"
	KindConfiguration        = "Configuration"
	KindCancelled            = "Cancelled"
)

// Outcome is the immutable result of one run.
type Outcome struct {
	Success      bool
	Text         string
	Summary      string
	Provenance   string
	Language     string
	Artifacts    []string
	ErrorKind    string
	ErrorDetail  string
	SummaryError string
	RunID        int64
	Elapsed      time.Duration
}

// CaptionExtractor is the caption path. A (nil, nil) return means the video
// has no captions.
type CaptionExtractor interface {
	Extract(ctx context.Context, ref media.Reference) (*captions.Result, error)
}

// Transcriber is the fallback path.
type Transcriber interface {
	Transcribe(ctx context.Context, ref media.Reference) (*transcribe.Result, error)
	TranscribeURL(ctx context.Context, audioURL string) (*transcribe.Result, error)
}

// Summarizer condenses acquired text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// ArtifactSaver persists run output.
type ArtifactSaver interface {
	Save(rec artifacts.Record) (string, error)
}

// Options select per-run behavior.
type Options struct {
	// ForceMedia skips the caption path entirely.
	ForceMedia bool
	// SkipSummary returns the acquired text without summarizing.
	SkipSummary bool
	// CaptionsOnly disables the fallback: no captions means failure.
	CaptionsOnly bool
	// AudioURL, when set, transcribes an already-hosted audio file and
	// ignores the caption path and the download step.
	AudioURL string
}

// Pipeline wires the strategies together. Construct one per run; the
// transcriber's progress hook is bound to the run's reporter.
type Pipeline struct {
	captions     CaptionExtractor
	transcriber  Transcriber
	summarizer   Summarizer
	artifacts    ArtifactSaver
	store        *runstore.Store
	logger       *slog.Logger
	progressOpts []progress.Option
}

// New builds a pipeline. store may be nil when run history is not wanted;
// artifacts may be nil to skip persistence.
func New(captionExtractor CaptionExtractor, transcriber Transcriber, summarizer Summarizer, saver ArtifactSaver, store *runstore.Store, logger *slog.Logger, progressOpts ...progress.Option) *Pipeline {
	return &Pipeline{
		captions:     captionExtractor,
		transcriber:  transcriber,
		summarizer:   summarizer,
		artifacts:    saver,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "pipeline"),
		progressOpts: progressOpts,
	}
}

// Run executes the pipeline on a dedicated goroutine, streaming progress to
// sink. It returns only after the final progress rendering has been flushed,
// so the Outcome is always delivered after every event for the run.
func (p *Pipeline) Run(ctx context.Context, ref media.Reference, opts Options, sink progress.Sink) Outcome {
	reporter := progress.NewReporter(sink, p.progressOpts...)

	results := make(chan Outcome, 1)
	go func() {
		results <- p.execute(ctx, ref, opts, reporter)
	}()
	outcome := <-results

	flushCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	reporter.Close(flushCtx, finalNote(outcome))
	return outcome
}

func (p *Pipeline) execute(ctx context.Context, ref media.Reference, opts Options, reporter *progress.Reporter) Outcome {
	started := time.Now()
	outcome := Outcome{}

	runID := p.recordStart(ctx, ref)
	outcome.RunID = runID
	if runID != 0 {
		ctx = services.WithRunID(ctx, strconv.FormatInt(runID, 10))
	}
	log := logging.WithContext(ctx, p.logger)
	if notifier, ok := p.transcriber.(interface{ SetOnStage(func(string)) }); ok && p.transcriber != nil {
		notifier.SetOnStage(func(message string) {
			reporter.Publish(message)
			if status, ok := stageStatus(message); ok {
				p.setStatus(runID, status)
			}
		})
	}
	fail := func(kind, detail string) Outcome {
		outcome.ErrorKind = kind
		outcome.ErrorDetail = detail
		outcome.Elapsed = time.Since(started)
		p.recordFailure(runID, kind, detail)
		return outcome
	}

	text, provenance, language, outcomeErr := p.acquire(ctx, ref, opts, reporter, runID)
	if outcomeErr != nil {
		if errors.Is(outcomeErr, context.Canceled) {
			return fail(KindCancelled, "run cancelled")
		}
		return fail(classify(outcomeErr), outcomeErr.Error())
	}
	if text == "" {
		// Acquisition must never report success with nothing to show.
		return fail(KindEmptyContent, "acquisition produced no text")
	}
	outcome.Text = text
	outcome.Provenance = provenance
	outcome.Language = language

	if !opts.SkipSummary && p.summarizer != nil {
		if err := ctx.Err(); err != nil {
			return fail(KindCancelled, "run cancelled before summarization")
		}
		p.setStatus(runID, runstore.StatusSummarizing)
		reporter.Publish("summarizing")
		summary, err := p.summarizer.Summarize(services.WithStage(ctx, "summarize"), text)
		if err != nil {
			// Partial success: the acquired text is valuable on its own.
			outcome.SummaryError = err.Error()
			log.Warn("summarization failed, keeping transcript",
				logging.String(logging.FieldVideo, ref.URL()), logging.Error(err))
			reporter.Publish("summary failed, transcript is still available")
		} else {
			outcome.Summary = summary
		}
	}

	if p.artifacts != nil {
		path, err := p.artifacts.Save(artifacts.Record{
			SourceURL:  ref.URL(),
			Provenance: provenance,
			Language:   language,
			Transcript: text,
			Summary:    outcome.Summary,
		})
		if err != nil {
			// Persistence is best effort, never fatal to the run.
			log.Warn("artifact persistence failed", logging.Error(err))
		} else {
			outcome.Artifacts = append(outcome.Artifacts, path)
		}
	}

	outcome.Success = true
	outcome.Elapsed = time.Since(started)
	p.recordSuccess(runID, outcome)
	return outcome
}

// acquire obtains text via captions, falling back to transcription.
func (p *Pipeline) acquire(ctx context.Context, ref media.Reference, opts Options, reporter *progress.Reporter, runID int64) (text, provenance, language string, err error) {
	if opts.AudioURL != "" {
		p.setStatus(runID, runstore.StatusTranscribing)
		reporter.Publish("transcribing hosted audio")
		result, err := p.transcriber.TranscribeURL(services.WithStage(ctx, "transcribe"), opts.AudioURL)
		if err != nil {
			return "", "", "", err
		}
		return result.Text, ProvenanceTranscribed, "", nil
	}

	if !opts.ForceMedia {
		p.setStatus(runID, runstore.StatusExtracting)
		reporter.Publish("extracting captions")
		capCtx := services.WithStage(ctx, "captions")
		log := logging.WithContext(capCtx, p.logger)
		result, capErr := p.captions.Extract(capCtx, ref)
		switch {
		case capErr == nil && result != nil:
			reporter.Publishf("captions found (%s)", result.Language)
			return result.Text, ProvenanceCaptioned, result.Language, nil
		case capErr == nil:
			log.Info("no captions, falling back to transcription",
				logging.String(logging.FieldVideo, ref.URL()))
			reporter.Publish("no captions, falling back to transcription")
		default:
			if errors.Is(capErr, context.Canceled) {
				return "", "", "", capErr
			}
			log.Warn("caption path failed, falling back to transcription",
				logging.String(logging.FieldVideo, ref.URL()), logging.Error(capErr))
			reporter.Publish("caption extraction failed, falling back to transcription")
		}
		if opts.CaptionsOnly {
			return "", "", "", services.Wrap(services.ErrNoCaptions, "pipeline", "acquire",
				"no captions and transcription is disabled", nil)
		}
	}

	if err := ctx.Err(); err != nil {
		return "", "", "", err
	}
	// The strategy's stage notes refine this as the download, upload, and
	// recognition phases start.
	p.setStatus(runID, runstore.StatusDownloading)
	result, err := p.transcriber.Transcribe(services.WithStage(ctx, "transcribe"), ref)
	if err != nil {
		return "", "", "", err
	}
	return result.Text, ProvenanceTranscribed, "", nil
}

// stageStatus maps transcription stage notes onto run-history statuses.
func stageStatus(message string) (runstore.Status, bool) {
	switch message {
	case transcribe.NoteDownloading:
		return runstore.StatusDownloading, true
	case transcribe.NoteUploading:
		return runstore.StatusUploading, true
	case transcribe.NoteRecognizing:
		return runstore.StatusTranscribing, true
	}
	return "", false
}

// classify maps strategy errors onto outcome error kinds.
func classify(err error) string {
	switch {
	case errors.Is(err, services.ErrNoCaptions):
		return KindNoText
	case errors.Is(err, services.ErrTransportUnsupported):
		return KindTransportUnsupported
	case errors.Is(err, services.ErrRemoteJob):
		return KindRemoteJobFailed
	case errors.Is(err, services.ErrEmptyContent):
		return KindEmptyContent
	case errors.Is(err, services.ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, services.ErrTransient):
		return KindTransientNetwork
	default:
		return KindTransientNetwork
	}
}

func finalNote(outcome Outcome) string {
	switch {
	case outcome.Success && outcome.SummaryError != "":
		return "done: transcript ready, summary failed (" + outcome.SummaryError + ")"
	case outcome.Success:
		return "done"
	default:
		return "failed: " + outcome.ErrorDetail
	}
}

func (p *Pipeline) recordStart(ctx context.Context, ref media.Reference) int64 {
	if p.store == nil {
		return 0
	}
	run, err := p.store.NewRun(ctx, ref.URL(), ref.VideoID())
	if err != nil {
		p.logger.Warn("failed to record run", logging.Error(err))
		return 0
	}
	return run.ID
}

func (p *Pipeline) setStatus(runID int64, status runstore.Status) {
	if p.store == nil || runID == 0 {
		return
	}
	if err := p.store.SetStatus(context.Background(), runID, status); err != nil {
		p.logger.Warn("failed to record run status", logging.Error(err))
	}
}

func (p *Pipeline) recordSuccess(runID int64, outcome Outcome) {
	if p.store == nil || runID == 0 {
		return
	}
	artifact := ""
	if len(outcome.Artifacts) > 0 {
		artifact = outcome.Artifacts[0]
	}
	err := p.store.Complete(context.Background(), runID, outcome.Provenance, outcome.Language, artifact, outcome.Summary != "")
	if err != nil {
		p.logger.Warn("failed to record run completion", logging.Error(err))
	}
}

func (p *Pipeline) recordFailure(runID int64, kind, detail string) {
	if p.store == nil || runID == 0 {
		return
	}
	if err := p.store.Fail(context.Background(), runID, kind, detail); err != nil {
		p.logger.Warn("failed to record run failure", logging.Error(err))
	}
}
