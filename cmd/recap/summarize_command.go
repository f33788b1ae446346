package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recap/internal/summarizer"
)

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var text string
	var textFile string

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize literal text without touching a video",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			input := text
			if textFile != "" {
				data, err := os.ReadFile(textFile)
				if err != nil {
					return fmt.Errorf("read text file: %w", err)
				}
				input = string(data)
			}
			if input == "" {
				return errors.New("provide --text or --text-file")
			}

			client := summarizer.New(summarizer.Config{
				APIKey:         cfg.Summary.APIKey,
				BaseURL:        cfg.Summary.BaseURL,
				Model:          cfg.Summary.Model,
				SystemPrompt:   cfg.Summary.SystemPrompt,
				UserPrompt:     cfg.Summary.UserPrompt,
				TimeoutSeconds: cfg.Summary.TimeoutSeconds,
			}, summarizer.WithLogger(logger))

			summary, err := client.Summarize(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Literal text to summarize")
	cmd.Flags().StringVar(&textFile, "text-file", "", "Path to a file whose contents are summarized")
	cmd.MarkFlagsMutuallyExclusive("text", "text-file")

	return cmd
}
