package main

import (
	"context"
	"log/slog"
	"time"

	"recap/internal/artifacts"
	"recap/internal/captions"
	"recap/internal/config"
	"recap/internal/media"
	"recap/internal/pipeline"
	"recap/internal/progress"
	"recap/internal/proxy"
	"recap/internal/runstore"
	"recap/internal/services"
	"recap/internal/summarizer"
	"recap/internal/transcribe"
)

// acquisitionFlags carry per-invocation proxy overrides shared by the run
// and bot commands.
type acquisitionFlags struct {
	proxyOverride string
	noProxy       bool
}

// resolveProxy applies the precedence: --no-proxy beats everything, then the
// --proxy flag, then the ambient environment, then the config file.
func resolveProxy(flags acquisitionFlags, cfg *config.Config) (proxyURL string, noProxy bool) {
	if flags.noProxy || cfg.Proxy.Disabled {
		return "", true
	}
	return proxy.EffectiveURL(flags.proxyOverride, cfg.Proxy.URL), false
}

// newCaptionStrategy builds the caption path with the resolved routing.
func newCaptionStrategy(cfg *config.Config, proxyURL string, noProxy bool, logger *slog.Logger) *captions.Strategy {
	provider := captions.NewYtDlpProvider("yt-dlp", proxyURL, noProxy)
	return captions.NewStrategy(provider, cfg.Captions.Languages, cfg.Captions.Formats, logger)
}

// newTranscribeStrategy builds the download-upload-recognize path. The
// returned flag reports whether object storage is configured; without it the
// strategy can only serve hosted-audio recognition.
func newTranscribeStrategy(cfg *config.Config, proxyURL string, noProxy bool, logger *slog.Logger) (*transcribe.Strategy, bool) {
	downloaderOpts := []transcribe.DownloaderOption{
		transcribe.WithDownloadTimeout(time.Duration(cfg.Download.TimeoutSeconds) * time.Second),
	}
	if noProxy {
		downloaderOpts = append(downloaderOpts, transcribe.WithDownloadNoProxy())
	} else if proxyURL != "" {
		downloaderOpts = append(downloaderOpts, transcribe.WithDownloadProxy(proxyURL))
	}
	if cfg.Download.FallbackURL != "" {
		downloaderOpts = append(downloaderOpts, transcribe.WithFallbackURL(cfg.Download.FallbackURL))
	}
	downloader := transcribe.NewYtDlpDownloader("yt-dlp", cfg.Download.Format, downloaderOpts...)

	recognizer := transcribe.NewDashScopeClient(cfg.ASR.BaseURL, cfg.ASR.APIKey,
		transcribe.WithASRModel(cfg.ASR.Model),
		transcribe.WithLanguageHints(cfg.ASR.LanguageHints),
		transcribe.WithPolling(
			time.Duration(cfg.ASR.PollIntervalSeconds)*time.Second,
			time.Duration(cfg.ASR.WaitTimeoutSeconds)*time.Second,
		),
	)

	var objectStore transcribe.ObjectStore
	if cfg.Storage.Configured() {
		objectStore = transcribe.NewOSSClient(
			cfg.Storage.Endpoint,
			cfg.Storage.Bucket,
			cfg.Storage.AccessKeyID,
			cfg.Storage.AccessKeySecret,
			time.Duration(cfg.Storage.SignedURLTTLHours)*time.Hour,
		)
	}
	return transcribe.NewStrategy(downloader, objectStore, recognizer, cfg.Paths.DownloadDir, logger), objectStore != nil
}

// buildPipeline assembles the full strategy stack from configuration.
func buildPipeline(cfg *config.Config, flags acquisitionFlags, store *runstore.Store, logger *slog.Logger, progressOpts []progress.Option) *pipeline.Pipeline {
	proxyURL, noProxy := resolveProxy(flags, cfg)

	captionStrategy := newCaptionStrategy(cfg, proxyURL, noProxy, logger)

	strategy, storageConfigured := newTranscribeStrategy(cfg, proxyURL, noProxy, logger)
	var transcriber pipeline.Transcriber = strategy
	if !storageConfigured {
		// Hosted-audio transcription still works without object storage;
		// the download path does not.
		transcriber = urlOnlyTranscriber{strategy: strategy}
	}

	summarizerClient := summarizer.New(summarizer.Config{
		APIKey:         cfg.Summary.APIKey,
		BaseURL:        cfg.Summary.BaseURL,
		Model:          cfg.Summary.Model,
		SystemPrompt:   cfg.Summary.SystemPrompt,
		UserPrompt:     cfg.Summary.UserPrompt,
		TimeoutSeconds: cfg.Summary.TimeoutSeconds,
	}, summarizer.WithLogger(logger))

	saver := artifacts.NewStore(cfg.Paths.ResultsDir)

	return pipeline.New(captionStrategy, transcriber, summarizerClient, saver, store, logger, progressOpts...)
}

// urlOnlyTranscriber surfaces missing storage configuration as a run
// failure for the download path while keeping hosted-audio transcription
// available.
type urlOnlyTranscriber struct {
	strategy *transcribe.Strategy
}

func (t urlOnlyTranscriber) Transcribe(context.Context, media.Reference) (*transcribe.Result, error) {
	return nil, services.Wrap(services.ErrConfiguration, "transcribe", "configure",
		"transcription fallback requires [storage] settings", nil)
}

func (t urlOnlyTranscriber) TranscribeURL(ctx context.Context, audioURL string) (*transcribe.Result, error) {
	return t.strategy.TranscribeURL(ctx, audioURL)
}

func (t urlOnlyTranscriber) SetOnStage(fn func(string)) {
	t.strategy.SetOnStage(fn)
}
