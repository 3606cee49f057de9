package botcmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SvetlanaKrugovykh/ai-dialog/helpdesk"
	"github.com/SvetlanaKrugovykh/ai-dialog/internal/jsonutil"
	"github.com/SvetlanaKrugovykh/ai-dialog/internal/retryutil"
	"github.com/SvetlanaKrugovykh/ai-dialog/llm"
	"github.com/SvetlanaKrugovykh/ai-dialog/localai"
	"github.com/SvetlanaKrugovykh/ai-dialog/session"
	"github.com/SvetlanaKrugovykh/ai-dialog/ticket"
)

type bot struct {
	api      *telegramAPI
	logger   *slog.Logger
	rules    *ticket.Classifier
	sessions *session.Store
	helpdesk *helpdesk.Client

	// Optional collaborators; nil disables the corresponding feature and
	// the rule-based classifier carries the full load.
	transcriber *localai.Transcriber
	suggester   *localai.Classifier
	fallback    llm.Client

	fallbackModel string
	minConfidence float64
	speechLang    string
	cacheDir      string
	voiceMaxBytes int64
}

func (b *bot) handleUpdate(ctx context.Context, u telegramUpdate) {
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	case u.EditedMessage != nil:
		b.handleMessage(ctx, u.EditedMessage)
	}
}

func (b *bot) handleMessage(ctx context.Context, msg *telegramMessage) {
	if msg == nil || msg.Chat == nil || msg.From == nil || msg.From.IsBot {
		return
	}
	chatID := msg.Chat.ID
	userID := msg.From.ID

	text := strings.TrimSpace(msg.Text)
	source := session.SourceText

	if msg.Voice != nil {
		transcript, err := b.transcribeVoice(ctx, msg.Voice)
		if err != nil {
			b.logger.Warn("voice_transcribe_failed", "user_id", userID, "error", err.Error())
			reply := msgVoiceFailed
			if b.transcriber == nil {
				reply = msgVoiceDisabled
			}
			b.send(ctx, chatID, reply, nil)
			return
		}
		text = transcript
		source = session.SourceVoice
		b.send(ctx, chatID, msgTranscriptPrefix+text, nil)
	}

	switch command(text) {
	case "/start", "/help":
		b.send(ctx, chatID, msgUsage, nil)
		return
	case "/cancel":
		b.sessions.Delete(userID)
		b.send(ctx, chatID, msgCancelled, nil)
		return
	}

	if rec, ok := b.sessions.Get(userID); ok && rec.AwaitingEdit {
		b.applyUserEdit(ctx, rec, text)
		return
	}

	if vr := ticket.Validate(text); !vr.Valid {
		b.send(ctx, chatID, vr.Reason, nil)
		return
	}

	tk := b.rules.Classify(text, "", strconv.FormatInt(userID, 10))
	if sug, ok := b.suggest(ctx, text); ok {
		applySuggestion(&tk, sug)
	}
	display := ticket.Render(tk)
	rec := b.sessions.Put(userID, chatID, tk, display, source)

	b.logger.Info("ticket_drafted",
		"ticket_id", tk.ID,
		"record_id", rec.RecordID,
		"user_id", userID,
		"department", string(tk.Department),
		"priority", string(tk.Priority),
		"language", string(tk.Language),
		"source", string(source),
	)
	b.sendPreview(ctx, userID, chatID, display)
}

// sendPreview sends the ticket preview with the confirm keyboard and
// remembers the message id so later edits can rewrite it in place.
func (b *bot) sendPreview(ctx context.Context, userID, chatID int64, display string) {
	msgID, err := b.api.sendMessage(ctx, chatID, display, confirmKeyboard())
	if err != nil {
		b.logger.Warn("telegram_send_failed", "chat_id", chatID, "error", err.Error())
		return
	}
	b.sessions.Update(userID, func(p *session.PendingTicket) {
		p.PreviewMessageID = msgID
	})
}

// command extracts a leading slash-command, stripping the @botname suffix
// Telegram appends in groups.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0]
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd)
}

func (b *bot) applyUserEdit(ctx context.Context, rec session.PendingTicket, text string) {
	var display string
	if ticket.IsDocumentEdit(text) {
		display = ticket.ReflowDocument(rec.Display, text)
	} else {
		display = ticket.ApplyEdit(rec.Display, ticket.ClassifyEdit(text))
	}

	if !b.sessions.Update(rec.UserID, func(p *session.PendingTicket) {
		p.Display = display
		p.AwaitingEdit = false
	}) {
		// Record expired between Get and Update.
		b.send(ctx, rec.ChatID, msgNoPending, nil)
		return
	}
	b.logger.Info("ticket_edited", "record_id", rec.RecordID, "user_id", rec.UserID)

	if rec.PreviewMessageID != 0 {
		err := b.api.editMessageText(ctx, rec.ChatID, rec.PreviewMessageID, display, confirmKeyboard())
		if err == nil {
			return
		}
		b.logger.Warn("preview_edit_failed", "chat_id", rec.ChatID, "error", err.Error())
	}
	b.sendPreview(ctx, rec.UserID, rec.ChatID, display)
}

func (b *bot) handleCallback(ctx context.Context, cb *telegramCallbackQuery) {
	if cb == nil || cb.From == nil {
		return
	}
	userID := cb.From.ID
	chatID := userID
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
	}
	if err := b.api.answerCallbackQuery(ctx, cb.ID, ""); err != nil {
		b.logger.Warn("callback_ack_failed", "error", err.Error())
	}

	rec, ok := b.sessions.Get(userID)

	switch cb.Data {
	case callbackConfirm:
		if !ok {
			b.send(ctx, chatID, msgNoPending, nil)
			return
		}
		b.submit(ctx, rec)
	case callbackEdit:
		if !ok {
			b.send(ctx, chatID, msgNoPending, nil)
			return
		}
		b.sessions.Update(userID, func(p *session.PendingTicket) {
			p.AwaitingEdit = true
		})
		b.send(ctx, chatID, msgEditPrompt, nil)
	case callbackCancel:
		b.sessions.Delete(userID)
		b.send(ctx, chatID, msgCancelled, nil)
	default:
		b.logger.Warn("unknown_callback_data", "data", cb.Data, "user_id", userID)
	}
}

func (b *bot) submit(ctx context.Context, rec session.PendingTicket) {
	tk := finalizeTicket(rec)
	display := rec.Display

	if err := b.helpdesk.Submit(ctx, tk, display); err != nil {
		b.logger.Warn("helpdesk_submit_failed", "ticket_id", tk.ID, "error", err.Error())
		b.send(ctx, rec.ChatID, msgSubmitRetry, nil)
		retryutil.AsyncRetry(b.logger, "helpdesk_submit", 0, 0, func(ctx context.Context) error {
			return b.helpdesk.Submit(ctx, tk, display)
		})
	} else {
		b.logger.Info("helpdesk_submit_ok", "ticket_id", tk.ID, "user_id", rec.UserID)
		b.send(ctx, rec.ChatID, fmt.Sprintf(msgSubmittedFmt, tk.ID), nil)
	}
	b.sessions.Delete(rec.UserID)
}

// finalizeTicket folds the user's edits back from the display text into the
// structured ticket. Title and description are the only editable fields;
// the classified values stay authoritative for the rest.
func finalizeTicket(rec session.PendingTicket) ticket.Ticket {
	tk := rec.Ticket
	f := ticket.ParseFields(rec.Display)
	if f.Title != "" {
		tk.Title = f.Title
	}
	if f.Description != "" {
		tk.Description = f.Description
	}
	return tk
}

func (b *bot) transcribeVoice(ctx context.Context, v *telegramVoice) (string, error) {
	if b.transcriber == nil {
		return "", fmt.Errorf("transcriber not configured")
	}
	file, err := b.api.getFile(ctx, v.FileID)
	if err != nil {
		return "", err
	}

	ext := filepath.Ext(file.FilePath)
	if ext == "" {
		ext = ".ogg"
	}
	dst := filepath.Join(b.cacheDir, uuid.NewString()+ext)
	defer os.Remove(dst)

	if _, err := b.api.downloadFileTo(ctx, file.FilePath, dst, b.voiceMaxBytes); err != nil {
		return "", err
	}
	return b.transcriber.Transcribe(ctx, dst, b.speechLang)
}

const suggestSystemPrompt = `You route IT helpdesk tickets. Given the user's message, respond with a single JSON object:
{"department":"IT|Legal|HR","priority":"Low|Medium|High","confidence":0.0-1.0}
The message may be Ukrainian, Russian or mixed. Respond with JSON only.`

// suggest asks the local classification service for a department/priority
// hint and falls back to the cloud LLM when the service is down or unsure.
// Either path failing just means no suggestion.
func (b *bot) suggest(ctx context.Context, text string) (localai.Suggestion, bool) {
	if b.suggester != nil {
		sug, err := b.suggester.Suggest(ctx, text)
		switch {
		case err != nil:
			b.logger.Warn("classifier_service_error", "error", err.Error())
		case sug.Confidence >= b.minConfidence:
			return sug, true
		default:
			b.logger.Debug("classifier_low_confidence", "confidence", sug.Confidence)
		}
	}

	if b.fallback == nil {
		return localai.Suggestion{}, false
	}

	llmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	res, err := b.fallback.Chat(llmCtx, llm.Request{
		Model:     b.fallbackModel,
		ForceJSON: true,
		Messages: []llm.Message{
			{Role: "system", Content: suggestSystemPrompt},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		b.logger.Warn("llm_fallback_error", "error", err.Error())
		return localai.Suggestion{}, false
	}

	var sug localai.Suggestion
	if err := jsonutil.DecodeWithFallback(res.Text, &sug); err != nil {
		b.logger.Warn("llm_fallback_bad_json", "error", err.Error())
		return localai.Suggestion{}, false
	}
	b.logger.Debug("llm_fallback_ok",
		"department", sug.Department,
		"priority", sug.Priority,
		"duration", res.Duration.String(),
		"total_tokens", res.Usage.TotalTokens,
	)
	return sug, true
}

// applySuggestion overlays only values that map onto known enums; anything
// else from the model is ignored.
func applySuggestion(tk *ticket.Ticket, sug localai.Suggestion) {
	switch d := ticket.Department(strings.TrimSpace(sug.Department)); d {
	case ticket.DepartmentIT, ticket.DepartmentLegal, ticket.DepartmentHR:
		tk.Department = d
	}
	switch p := ticket.Priority(strings.TrimSpace(sug.Priority)); p {
	case ticket.PriorityLow, ticket.PriorityMedium, ticket.PriorityHigh, ticket.PriorityCritical:
		tk.Priority = p
	}
}

func (b *bot) send(ctx context.Context, chatID int64, text string, markup *inlineKeyboardMarkup) {
	if _, err := b.api.sendMessage(ctx, chatID, text, markup); err != nil {
		b.logger.Warn("telegram_send_failed", "chat_id", chatID, "error", err.Error())
	}
}
