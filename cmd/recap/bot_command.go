package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"recap/internal/config"
	"recap/internal/media"
	"recap/internal/notify"
	"recap/internal/pipeline"
	"recap/internal/runstore"
)

// telegramMessageLimit is the Bot API cap on a single message body.
const telegramMessageLimit = 4096

func newBotCommand(ctx *commandContext) *cobra.Command {
	var flags acquisitionFlags
	var pollTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot that summarizes links sent to it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if cfg.Telegram.BotToken == "" {
				return errors.New("bot mode requires telegram.bot_token (or TELEGRAM_BOT_TOKEN)")
			}

			lockPath := filepath.Join(cfg.Paths.LogDir, "recap-bot.lock")
			lock := flock.New(lockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire bot lock: %w", err)
			}
			if !locked {
				return errors.New("another recap bot instance is already running")
			}
			defer func() { _ = lock.Unlock() }()

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			botCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bot := &botLoop{
				ctx:         ctx,
				cfg:         cfg,
				flags:       flags,
				store:       store,
				logger:      logger,
				client:      notify.NewTelegramClient(cfg.Telegram.BotToken),
				pollTimeout: pollTimeout,
			}
			logger.Info("bot started", "lock", lockPath)
			return bot.run(botCtx)
		},
	}

	cmd.Flags().StringVar(&flags.proxyOverride, "proxy", "", "Proxy URL for caption and media access")
	cmd.Flags().BoolVar(&flags.noProxy, "no-proxy", false, "Force direct connections for all stages")
	cmd.Flags().DurationVar(&pollTimeout, "poll-timeout", 30*time.Second, "Telegram long-poll timeout")

	return cmd
}

type botLoop struct {
	ctx         *commandContext
	cfg         *config.Config
	flags       acquisitionFlags
	store       *runstore.Store
	logger      *slog.Logger
	client      *notify.TelegramClient
	pollTimeout time.Duration
}

func (b *botLoop) run(ctx context.Context) error {
	var offset int64
	for {
		updates, err := b.client.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info("bot stopped")
				return nil
			}
			b.logger.Warn("poll updates failed", "error", err)
			select {
			case <-ctx.Done():
				b.logger.Info("bot stopped")
				return nil
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *botLoop) handleUpdate(ctx context.Context, update notify.Update) {
	msg := update.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	chatID := msg.Chat.ID

	if !b.senderAllowed(update) {
		b.logger.Warn("ignoring message from unauthorized sender", "chat_id", chatID)
		return
	}

	ref, ok := media.ExtractFromText(msg.Text)
	if !ok {
		b.reply(ctx, chatID, "Send me a video link and I will summarize it.")
		return
	}

	b.logger.Info("handling video request", "chat_id", chatID, "url", ref.URL())

	p := buildPipeline(b.cfg, b.flags, b.store, b.logger, b.ctx.progressOptions(b.logger))
	sink := notify.NewTelegramSink(b.client, chatID)
	outcome := p.Run(ctx, ref, pipeline.Options{}, sink)

	b.deliver(ctx, chatID, outcome)
}

// senderAllowed checks the allowlist against the numeric user ID and the
// username, in either bare or @-prefixed form. An empty allowlist admits
// everyone.
func (b *botLoop) senderAllowed(update notify.Update) bool {
	allowed := b.cfg.Telegram.AllowedUsers
	if len(allowed) == 0 {
		return true
	}
	from := update.Message.From
	if from == nil {
		return false
	}
	for _, entry := range allowed {
		entry = strings.TrimPrefix(strings.TrimSpace(entry), "@")
		if entry == "" {
			continue
		}
		if entry == strconv.FormatInt(from.ID, 10) {
			return true
		}
		if from.Username != "" && strings.EqualFold(entry, from.Username) {
			return true
		}
	}
	return false
}

func (b *botLoop) deliver(ctx context.Context, chatID int64, outcome pipeline.Outcome) {
	if !outcome.Success {
		b.reply(ctx, chatID, "Failed: "+outcome.ErrorDetail)
		return
	}

	text := outcome.Summary
	if text == "" {
		text = outcome.Text
	}
	if runes := []rune(text); len(runes) > telegramMessageLimit {
		text = string(runes[:telegramMessageLimit-1]) + "…"
	}
	b.reply(ctx, chatID, text)

	if outcome.SummaryError != "" {
		b.reply(ctx, chatID, "Note: summarization failed ("+outcome.SummaryError+"); transcript sent instead.")
	}
	for _, path := range outcome.Artifacts {
		b.sendArtifact(ctx, chatID, path)
	}
}

func (b *botLoop) sendArtifact(ctx context.Context, chatID int64, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		b.logger.Warn("read artifact failed", "path", path, "error", err)
		return
	}
	err = b.client.SendDocument(ctx, chatID, filepath.Base(path), content, "Full transcript and summary")
	if err != nil {
		b.logger.Warn("send document failed", "error", err)
	}
}

func (b *botLoop) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.client.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Warn("send message failed", "error", err)
	}
}
