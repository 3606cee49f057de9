package botcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Telegram API

type telegramAPI struct {
	http    *http.Client
	baseURL string
	token   string
}

func newTelegramAPI(httpClient *http.Client, baseURL, token string) *telegramAPI {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &telegramAPI{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

type telegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *telegramMessage `json:"message,omitempty"`
	// Users sometimes fix a typo by editing the message they just sent.
	EditedMessage *telegramMessage       `json:"edited_message,omitempty"`
	CallbackQuery *telegramCallbackQuery `json:"callback_query,omitempty"`
}

type telegramMessage struct {
	MessageID int64          `json:"message_id"`
	Date      int64          `json:"date,omitempty"`
	Chat      *telegramChat  `json:"chat,omitempty"`
	From      *telegramUser  `json:"from,omitempty"`
	Text      string         `json:"text,omitempty"`
	Voice     *telegramVoice `json:"voice,omitempty"`
}

type telegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"` // private|group|supergroup|channel
}

type telegramUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type telegramVoice struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

type telegramCallbackQuery struct {
	ID      string           `json:"id"`
	From    *telegramUser    `json:"from,omitempty"`
	Message *telegramMessage `json:"message,omitempty"`
	Data    string           `json:"data,omitempty"`
}

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type telegramGetUpdatesResponse struct {
	OK     bool             `json:"ok"`
	Result []telegramUpdate `json:"result"`
}

type telegramGetMeResponse struct {
	OK     bool         `json:"ok"`
	Result telegramUser `json:"result"`
}

func (api *telegramAPI) getMe(ctx context.Context) (*telegramUser, error) {
	url := fmt.Sprintf("%s/bot%s/getMe", api.baseURL, api.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := api.http.Do(req)
	if err != nil {
		return nil, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telegram http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out telegramGetMeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("telegram getMe: ok=false")
	}
	return &out.Result, nil
}

func (api *telegramAPI) getUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegramUpdate, int64, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=%d", api.baseURL, api.token, secs)
	if offset > 0 {
		url += fmt.Sprintf("&offset=%d", offset)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, offset, err
	}
	resp, err := api.http.Do(req)
	if err != nil {
		return nil, offset, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, offset, fmt.Errorf("telegram http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out telegramGetUpdatesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, offset, err
	}
	if !out.OK {
		return nil, offset, fmt.Errorf("telegram getUpdates: ok=false")
	}

	next := offset
	for _, u := range out.Result {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
	}
	return out.Result, next, nil
}

func isTelegramPollTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "client.timeout exceeded")
}

type telegramSendMessageRequest struct {
	ChatID                int64                 `json:"chat_id"`
	Text                  string                `json:"text"`
	ParseMode             string                `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *inlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type telegramEditMessageTextRequest struct {
	ChatID                int64                 `json:"chat_id"`
	MessageID             int64                 `json:"message_id"`
	Text                  string                `json:"text"`
	ParseMode             string                `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *inlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type telegramAnswerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

type telegramOKResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

type telegramFile struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
}

type telegramGetFileResponse struct {
	OK     bool         `json:"ok"`
	Result telegramFile `json:"result"`
}

func (api *telegramAPI) getFile(ctx context.Context, fileID string) (*telegramFile, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, fmt.Errorf("missing file_id")
	}
	url := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", api.baseURL, api.token, url.QueryEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := api.http.Do(req)
	if err != nil {
		return nil, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telegram http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out telegramGetFileResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("telegram getFile: ok=false")
	}
	if strings.TrimSpace(out.Result.FilePath) == "" {
		return nil, fmt.Errorf("telegram getFile: missing file_path")
	}
	return &out.Result, nil
}

func (api *telegramAPI) downloadFileTo(ctx context.Context, filePath, dstPath string, maxBytes int64) (int64, error) {
	filePath = strings.TrimSpace(filePath)
	dstPath = strings.TrimSpace(dstPath)
	if filePath == "" {
		return 0, fmt.Errorf("missing file_path")
	}
	if dstPath == "" {
		return 0, fmt.Errorf("missing dst_path")
	}
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}

	url := fmt.Sprintf("%s/file/bot%s/%s", api.baseURL, api.token, strings.TrimLeft(filePath, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := api.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("telegram download http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	f, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	limited := io.LimitReader(resp.Body, maxBytes+1)
	n, err := io.Copy(f, limited)
	if err != nil {
		return n, err
	}
	if n > maxBytes {
		return n, fmt.Errorf("telegram file too large (>%d bytes)", maxBytes)
	}
	if err := f.Close(); err != nil {
		return n, err
	}
	return n, nil
}

type telegramSendMessageResponse struct {
	OK          bool             `json:"ok"`
	Result      *telegramMessage `json:"result,omitempty"`
	ErrorCode   int              `json:"error_code,omitempty"`
	Description string           `json:"description,omitempty"`
}

// sendMessage tries MarkdownV2 first, then the escaped form, then plain
// text, so the ticket preview keeps its bold labels when Telegram accepts
// them and still arrives when it does not. It returns the sent message id.
func (api *telegramAPI) sendMessage(ctx context.Context, chatID int64, text string, markup *inlineKeyboardMarkup) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		text = "(empty)"
	}

	id, err := api.sendMessageWithParseMode(ctx, chatID, text, "MarkdownV2", markup)
	if err == nil {
		return id, nil
	}
	if !isTelegramMarkdownParseError(err) {
		slog.Warn("failed to send with MarkdownV2", "error", err)
		escaped := escapeTelegramMarkdownV2(text)
		id, err = api.sendMessageWithParseMode(ctx, chatID, escaped, "MarkdownV2", markup)
		if err == nil {
			return id, nil
		}
		if !isTelegramMarkdownParseError(err) {
			slog.Warn("again, failed to send escaped with MarkdownV2", "error", err)
		}
	}

	slog.Warn("failed to send with MarkdownV2; fallback to plain text", "error", err)
	return api.sendMessageWithParseMode(ctx, chatID, text, "", markup)
}

func (api *telegramAPI) sendMessageWithParseMode(ctx context.Context, chatID int64, text, parseMode string, markup *inlineKeyboardMarkup) (int64, error) {
	reqBody := telegramSendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             strings.TrimSpace(parseMode),
		DisableWebPagePreview: true,
		ReplyMarkup:           markup,
	}
	b, _ := json.Marshal(reqBody)
	url := fmt.Sprintf("%s/bot%s/sendMessage", api.baseURL, api.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := api.http.Do(req)
	if err != nil {
		return 0, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	var out telegramSendMessageResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.OK {
		return 0, &telegramRequestError{
			StatusCode:  resp.StatusCode,
			ErrorCode:   out.ErrorCode,
			Description: out.Description,
			Body:        strings.TrimSpace(string(raw)),
		}
	}
	if out.Result != nil {
		return out.Result.MessageID, nil
	}
	return 0, nil
}

// editMessageText rewrites an already-sent message, with the same parse-mode
// fallback ladder as sendMessage.
func (api *telegramAPI) editMessageText(ctx context.Context, chatID, messageID int64, text string, markup *inlineKeyboardMarkup) error {
	if messageID == 0 {
		return fmt.Errorf("missing message_id")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = "(empty)"
	}

	err := api.editMessageTextWithParseMode(ctx, chatID, messageID, text, "MarkdownV2", markup)
	if err == nil {
		return nil
	}
	if !isTelegramMarkdownParseError(err) {
		slog.Warn("failed to edit with MarkdownV2", "error", err)
		err = api.editMessageTextWithParseMode(ctx, chatID, messageID, escapeTelegramMarkdownV2(text), "MarkdownV2", markup)
		if err == nil {
			return nil
		}
	}
	return api.editMessageTextWithParseMode(ctx, chatID, messageID, text, "", markup)
}

func (api *telegramAPI) editMessageTextWithParseMode(ctx context.Context, chatID, messageID int64, text, parseMode string, markup *inlineKeyboardMarkup) error {
	reqBody := telegramEditMessageTextRequest{
		ChatID:                chatID,
		MessageID:             messageID,
		Text:                  text,
		ParseMode:             strings.TrimSpace(parseMode),
		DisableWebPagePreview: true,
		ReplyMarkup:           markup,
	}
	b, _ := json.Marshal(reqBody)
	url := fmt.Sprintf("%s/bot%s/editMessageText", api.baseURL, api.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := api.http.Do(req)
	if err != nil {
		return err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	var out telegramOKResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.OK {
		return &telegramRequestError{
			StatusCode:  resp.StatusCode,
			ErrorCode:   out.ErrorCode,
			Description: out.Description,
			Body:        strings.TrimSpace(string(raw)),
		}
	}
	return nil
}

func (api *telegramAPI) answerCallbackQuery(ctx context.Context, callbackID, text string) error {
	callbackID = strings.TrimSpace(callbackID)
	if callbackID == "" {
		return fmt.Errorf("missing callback_query_id")
	}
	b, _ := json.Marshal(telegramAnswerCallbackRequest{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	url := fmt.Sprintf("%s/bot%s/answerCallbackQuery", api.baseURL, api.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := api.http.Do(req)
	if err != nil {
		return err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var ok telegramOKResponse
	_ = json.Unmarshal(raw, &ok)
	if !ok.OK {
		return fmt.Errorf("telegram answerCallbackQuery: ok=false")
	}
	return nil
}

func escapeTelegramMarkdownV2(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) * 2)
	for _, r := range text {
		switch r {
		case '\\', '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

type telegramRequestError struct {
	StatusCode  int
	ErrorCode   int
	Description string
	Body        string
}

func (e *telegramRequestError) Error() string {
	if e == nil {
		return "telegram request failed"
	}
	desc := strings.TrimSpace(e.Description)
	if desc != "" {
		if e.StatusCode > 0 {
			return fmt.Sprintf("telegram http %d: %s", e.StatusCode, desc)
		}
		return "telegram: " + desc
	}
	body := strings.TrimSpace(e.Body)
	if e.StatusCode > 0 {
		if body != "" {
			return fmt.Sprintf("telegram http %d: %s", e.StatusCode, body)
		}
		return fmt.Sprintf("telegram http %d", e.StatusCode)
	}
	if body != "" {
		return "telegram: " + body
	}
	return "telegram request failed"
}

func isTelegramMarkdownParseError(err error) bool {
	if err == nil {
		return false
	}
	var reqErr *telegramRequestError
	if errors.As(err, &reqErr) {
		desc := strings.ToLower(strings.TrimSpace(reqErr.Description))
		if strings.Contains(desc, "can't parse entities") || strings.Contains(desc, "can't parse entity") {
			return true
		}
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "can't parse entities") || strings.Contains(msg, "can't parse entity")
}
