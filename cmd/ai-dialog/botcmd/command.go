// Package botcmd runs the Telegram long-poll loop that turns user messages
// into helpdesk tickets.
package botcmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SvetlanaKrugovykh/ai-dialog/helpdesk"
	"github.com/SvetlanaKrugovykh/ai-dialog/internal/logutil"
	"github.com/SvetlanaKrugovykh/ai-dialog/internal/voicecache"
	"github.com/SvetlanaKrugovykh/ai-dialog/localai"
	"github.com/SvetlanaKrugovykh/ai-dialog/providers/openai"
	"github.com/SvetlanaKrugovykh/ai-dialog/session"
	"github.com/SvetlanaKrugovykh/ai-dialog/ticket"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram support bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().String("telegram-bot-token", "", "Telegram bot token (or AI_DIALOG_TELEGRAM_BOT_TOKEN).")
	_ = viper.BindPFlag("telegram.bot_token", cmd.Flags().Lookup("telegram-bot-token"))

	cmd.Flags().String("lexicon", "", "Path to a YAML keyword lexicon overriding the built-in one.")
	_ = viper.BindPFlag("lexicon.path", cmd.Flags().Lookup("lexicon"))

	return cmd
}

func runServe(parent context.Context) error {
	token := strings.TrimSpace(viper.GetString("telegram.bot_token"))
	if token == "" {
		return fmt.Errorf("missing telegram.bot_token (set via --telegram-bot-token or %s_TELEGRAM_BOT_TOKEN)", "AI_DIALOG")
	}

	logger, err := logutil.LoggerFromViper()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	lex, err := loadLexicon(logger)
	if err != nil {
		return err
	}

	cacheDir := strings.TrimSpace(viper.GetString("voice.cache_dir"))
	if err := voicecache.Ensure(cacheDir); err != nil {
		return fmt.Errorf("voice cache: %w", err)
	}
	if err := voicecache.Sweep(cacheDir, viper.GetDuration("voice.max_age"), viper.GetInt("voice.max_files")); err != nil {
		logger.Warn("voice_cache_sweep_failed", "error", err.Error())
	}

	helpdeskBase := strings.TrimSpace(viper.GetString("helpdesk.base_url"))
	if helpdeskBase == "" {
		return fmt.Errorf("missing helpdesk.base_url")
	}

	b := &bot{
		api:      newTelegramAPI(nil, viper.GetString("telegram.base_url"), token),
		logger:   logger,
		rules:    ticket.NewClassifier(lex),
		sessions: session.NewStore(viper.GetDuration("session.ttl")),
		helpdesk: helpdesk.New(helpdeskBase, viper.GetString("helpdesk.api_token")),

		minConfidence: viper.GetFloat64("classifier.min_confidence"),
		speechLang:    viper.GetString("speech.language"),
		cacheDir:      cacheDir,
		voiceMaxBytes: viper.GetInt64("voice.max_bytes"),
	}

	if base := strings.TrimSpace(viper.GetString("speech.base_url")); base != "" {
		b.transcriber = localai.NewTranscriber(base)
	}
	if base := strings.TrimSpace(viper.GetString("classifier.base_url")); base != "" {
		b.suggester = localai.NewClassifier(base)
	}
	if key := strings.TrimSpace(viper.GetString("llm.api_key")); key != "" {
		b.fallback = openai.New(viper.GetString("llm.endpoint"), key)
		b.fallbackModel = viper.GetString("llm.model")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	me, err := b.api.getMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	logger.Info("bot_started",
		"username", me.Username,
		"speech", b.transcriber != nil,
		"classifier", b.suggester != nil,
		"llm_fallback", b.fallback != nil,
	)

	return b.run(ctx, viper.GetDuration("telegram.poll_timeout"))
}

func loadLexicon(logger *slog.Logger) (*ticket.Lexicon, error) {
	path := strings.TrimSpace(viper.GetString("lexicon.path"))
	if path == "" {
		return nil, nil
	}
	lex, err := ticket.LoadLexicon(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}
	logger.Info("lexicon_loaded", "path", path)
	return lex, nil
}

// run polls getUpdates until the context is cancelled. Poll timeouts are
// the normal idle case; other errors back off briefly so a Telegram outage
// does not turn into a busy loop.
func (b *bot) run(ctx context.Context, pollTimeout time.Duration) error {
	var offset int64
	sweepEvery := time.NewTicker(10 * time.Minute)
	defer sweepEvery.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot_stopped")
			return nil
		case <-sweepEvery.C:
			if err := voicecache.Sweep(b.cacheDir, viper.GetDuration("voice.max_age"), viper.GetInt("voice.max_files")); err != nil {
				b.logger.Warn("voice_cache_sweep_failed", "error", err.Error())
			}
			b.logger.Debug("sessions_pending", "count", b.sessions.Len())
		default:
		}

		updates, next, err := b.api.getUpdates(ctx, offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info("bot_stopped")
				return nil
			}
			if isTelegramPollTimeoutError(err) {
				continue
			}
			b.logger.Warn("telegram_poll_error", "error", err.Error())
			select {
			case <-ctx.Done():
			case <-time.After(3 * time.Second):
			}
			continue
		}
		offset = next

		for _, u := range updates {
			b.handleUpdate(ctx, u)
		}
	}
}
