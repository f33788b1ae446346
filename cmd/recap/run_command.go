package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"recap/internal/config"
	"recap/internal/media"
	"recap/internal/notify"
	"recap/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags acquisitionFlags
	var forceMedia bool
	var skipSummary bool
	var captionsOnly bool
	var skipTranscribe bool
	var audioURL string

	cmd := &cobra.Command{
		Use:   "run <video-url>",
		Short: "Fetch a video's text and summarize it",
		Long: `Run extracts a video's captions, falling back to downloading the audio
and transcribing it, then summarizes the text. The transcript and summary
are printed and saved under the results directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			ref, err := media.Parse(args[0])
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if skipTranscribe {
				return stageOnly(runCtx, cmd, cfg, flags, logger, ref, forceMedia)
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			p := buildPipeline(cfg, flags, store, logger, ctx.progressOptions(logger))
			sink := notify.NewConsoleSink(os.Stderr)
			outcome := p.Run(runCtx, ref, pipeline.Options{
				ForceMedia:   forceMedia,
				SkipSummary:  skipSummary,
				CaptionsOnly: captionsOnly,
				AudioURL:     audioURL,
			}, sink)

			return printOutcome(cmd, outcome)
		},
	}

	cmd.Flags().BoolVar(&forceMedia, "force-media", false, "Skip captions and go straight to audio transcription")
	cmd.Flags().BoolVar(&skipSummary, "skip-summary", false, "Print the transcript without summarizing")
	cmd.Flags().BoolVar(&captionsOnly, "captions-only", false, "Fail instead of falling back to transcription")
	cmd.Flags().BoolVar(&skipTranscribe, "skip-transcribe", false, "Stage the audio and print its signed URL without transcribing")
	cmd.Flags().StringVar(&audioURL, "audio-url", "", "Transcribe an already-hosted audio file instead of the video")
	cmd.Flags().StringVar(&flags.proxyOverride, "proxy", "", "Proxy URL for caption and media access")
	cmd.Flags().BoolVar(&flags.noProxy, "no-proxy", false, "Force direct connections for all stages")

	return cmd
}

// stageOnly attempts captions first, then downloads and uploads the audio,
// printing the signed URL instead of transcribing. The uploaded object is
// kept so the URL stays usable until its TTL lapses.
func stageOnly(runCtx context.Context, cmd *cobra.Command, cfg *config.Config, flags acquisitionFlags, logger *slog.Logger, ref media.Reference, forceMedia bool) error {
	proxyURL, noProxy := resolveProxy(flags, cfg)
	out := cmd.OutOrStdout()

	if !forceMedia {
		result, err := newCaptionStrategy(cfg, proxyURL, noProxy, logger).Extract(runCtx, ref)
		if err != nil {
			return err
		}
		if result != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "captions found (%s), nothing to stage\n", result.Language)
			fmt.Fprintln(out, result.Text)
			return nil
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "no captions, staging audio")
	}

	strategy, storageConfigured := newTranscribeStrategy(cfg, proxyURL, noProxy, logger)
	if !storageConfigured {
		return errors.New("staging audio requires [storage] settings")
	}
	audioPath, signedURL, err := strategy.StageAudio(runCtx, ref)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "audio saved to %s\n", audioPath)
	fmt.Fprintln(out, signedURL)
	return nil
}

func printOutcome(cmd *cobra.Command, outcome pipeline.Outcome) error {
	if !outcome.Success {
		return errors.New(outcome.ErrorKind + ": " + outcome.ErrorDetail)
	}

	out := cmd.OutOrStdout()
	if outcome.Summary != "" {
		fmt.Fprintln(out, outcome.Summary)
	} else {
		fmt.Fprintln(out, outcome.Text)
	}
	if outcome.SummaryError != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "summary failed (%s); transcript shown instead\n", outcome.SummaryError)
	}
	for _, artifact := range outcome.Artifacts {
		fmt.Fprintf(cmd.ErrOrStderr(), "saved: %s\n", artifact)
	}
	return nil
}
