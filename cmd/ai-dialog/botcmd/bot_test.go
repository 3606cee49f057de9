package botcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SvetlanaKrugovykh/ai-dialog/helpdesk"
	"github.com/SvetlanaKrugovykh/ai-dialog/localai"
	"github.com/SvetlanaKrugovykh/ai-dialog/session"
	"github.com/SvetlanaKrugovykh/ai-dialog/ticket"
)

func TestCommand(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"/start", "/start"},
		{"/START", "/start"},
		{"/help@support_bot", "/help"},
		{"/cancel все одно", "/cancel"},
		{"принтер не працює", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := command(tc.in); got != tc.want {
			t.Errorf("command(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestApplySuggestion(t *testing.T) {
	t.Parallel()

	tk := ticket.Ticket{Department: ticket.DepartmentIT, Priority: ticket.PriorityMedium}

	applySuggestion(&tk, localai.Suggestion{Department: "HR", Priority: "High"})
	if tk.Department != ticket.DepartmentHR || tk.Priority != ticket.PriorityHigh {
		t.Fatalf("suggestion not applied: %+v", tk)
	}

	// Values outside the enums must be ignored, not written through.
	applySuggestion(&tk, localai.Suggestion{Department: "Facilities", Priority: "ASAP"})
	if tk.Department != ticket.DepartmentHR || tk.Priority != ticket.PriorityHigh {
		t.Fatalf("unknown suggestion values must be ignored: %+v", tk)
	}
}

func TestFinalizeTicketFoldsEditsFromDisplay(t *testing.T) {
	t.Parallel()

	tk := ticket.Ticket{
		ID:          "TKT-20240101120000123",
		Department:  ticket.DepartmentIT,
		Category:    ticket.DefaultCategory,
		Priority:    ticket.PriorityHigh,
		Title:       "Стара назва",
		Description: "Старий опис",
		Language:    ticket.LanguageUkrainian,
		CreatedAt:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Status:      ticket.StatusOpen,
	}
	display := ticket.Render(tk)
	display = ticket.ApplyEdit(display, ticket.EditIntent{Kind: ticket.EditRetitle, Text: "Нова назва"})

	rec := session.PendingTicket{Ticket: tk, Display: display}
	got := finalizeTicket(rec)

	if got.Title != "Нова назва" {
		t.Errorf("Title = %q, want edited title", got.Title)
	}
	if got.Description != "Старий опис" {
		t.Errorf("Description = %q, want untouched", got.Description)
	}
	if got.Department != ticket.DepartmentIT || got.Priority != ticket.PriorityHigh {
		t.Errorf("classified fields must survive: %+v", got)
	}
}

func TestConfirmKeyboard(t *testing.T) {
	t.Parallel()

	kb := confirmKeyboard()
	if len(kb.InlineKeyboard) != 1 || len(kb.InlineKeyboard[0]) != 3 {
		t.Fatalf("keyboard shape = %+v", kb.InlineKeyboard)
	}
	want := []string{callbackConfirm, callbackEdit, callbackCancel}
	for i, btn := range kb.InlineKeyboard[0] {
		if btn.CallbackData != want[i] {
			t.Errorf("button %d data = %q, want %q", i, btn.CallbackData, want[i])
		}
	}
}

// fakeTelegram records sendMessage and editMessageText bodies, hands out
// incrementing message ids and answers ok to everything else.
type fakeTelegram struct {
	mu     sync.Mutex
	sent   []telegramSendMessageRequest
	edited []telegramEditMessageTextRequest
	nextID int64
}

func (f *fakeTelegram) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			raw, _ := io.ReadAll(r.Body)
			var req telegramSendMessageRequest
			_ = json.Unmarshal(raw, &req)
			f.mu.Lock()
			f.sent = append(f.sent, req)
			f.nextID++
			id := f.nextID
			f.mu.Unlock()
			fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d}}`, id)
		case strings.HasSuffix(r.URL.Path, "/editMessageText"):
			raw, _ := io.ReadAll(r.Body)
			var req telegramEditMessageTextRequest
			_ = json.Unmarshal(raw, &req)
			f.mu.Lock()
			f.edited = append(f.edited, req)
			f.mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
		default:
			_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
		}
	})
}

func (f *fakeTelegram) lastSent(t *testing.T) telegramSendMessageRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return f.sent[len(f.sent)-1]
}

func newTestBot(t *testing.T, tg *fakeTelegram, helpdeskURL string) *bot {
	t.Helper()
	srv := httptest.NewServer(tg.handler())
	t.Cleanup(srv.Close)
	return &bot{
		api:      newTelegramAPI(srv.Client(), srv.URL, "TEST"),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		rules:    ticket.NewClassifier(nil),
		sessions: session.NewStore(time.Minute),
		helpdesk: helpdesk.New(helpdeskURL, ""),
	}
}

func userMessage(userID, chatID int64, text string) *telegramMessage {
	return &telegramMessage{
		MessageID: 1,
		Chat:      &telegramChat{ID: chatID, Type: "private"},
		From:      &telegramUser{ID: userID},
		Text:      text,
	}
}

func TestHandleMessageRejectsInvalidText(t *testing.T) {
	t.Parallel()

	tg := &fakeTelegram{}
	b := newTestBot(t, tg, "http://127.0.0.1:0")

	b.handleMessage(context.Background(), userMessage(7, 7, "ааааааааа"))

	got := tg.lastSent(t)
	if !strings.Contains(got.Text, "повторювані символи") {
		t.Errorf("reply = %q, want validation reason", got.Text)
	}
	if b.sessions.Len() != 0 {
		t.Error("invalid message must not create a pending ticket")
	}
}

func TestHandleMessageDraftsTicketWithKeyboard(t *testing.T) {
	t.Parallel()

	tg := &fakeTelegram{}
	b := newTestBot(t, tg, "http://127.0.0.1:0")

	b.handleMessage(context.Background(), userMessage(7, 7, "принтер не працює, терміново потрібно"))

	got := tg.lastSent(t)
	if !strings.Contains(got.Text, "Нова заявка") {
		t.Errorf("reply = %q, want rendered ticket", got.Text)
	}
	if got.ReplyMarkup == nil || len(got.ReplyMarkup.InlineKeyboard) == 0 {
		t.Fatal("draft must carry the confirm keyboard")
	}

	rec, ok := b.sessions.Get(7)
	if !ok {
		t.Fatal("pending ticket not stored")
	}
	if rec.Ticket.Department != ticket.DepartmentIT || rec.Ticket.Priority != ticket.PriorityHigh {
		t.Errorf("classified ticket = %+v", rec.Ticket)
	}
	if rec.Source != session.SourceText {
		t.Errorf("source = %q", rec.Source)
	}
}

func TestHandleMessageEditFlow(t *testing.T) {
	t.Parallel()

	tg := &fakeTelegram{}
	b := newTestBot(t, tg, "http://127.0.0.1:0")
	ctx := context.Background()

	b.handleMessage(ctx, userMessage(9, 9, "принтер не працює, терміново потрібно"))
	b.handleCallback(ctx, &telegramCallbackQuery{
		ID:      "cb1",
		From:    &telegramUser{ID: 9},
		Message: &telegramMessage{Chat: &telegramChat{ID: 9}},
		Data:    callbackEdit,
	})

	rec, ok := b.sessions.Get(9)
	if !ok || !rec.AwaitingEdit {
		t.Fatalf("edit callback must flip AwaitingEdit, rec=%+v ok=%v", rec, ok)
	}

	b.handleMessage(ctx, userMessage(9, 9, "змінити заголовок на Зламаний принтер у бухгалтерії"))

	rec, ok = b.sessions.Get(9)
	if !ok {
		t.Fatal("pending ticket lost after edit")
	}
	if rec.AwaitingEdit {
		t.Error("AwaitingEdit must reset after one edit")
	}
	f := ticket.ParseFields(rec.Display)
	if f.Title != "Зламаний принтер у бухгалтерії" {
		t.Errorf("Title = %q", f.Title)
	}

	// The original preview must be rewritten in place, keyboard included.
	tg.mu.Lock()
	edited := append([]telegramEditMessageTextRequest(nil), tg.edited...)
	tg.mu.Unlock()
	if len(edited) != 1 {
		t.Fatalf("editMessageText called %d times, want 1", len(edited))
	}
	if edited[0].MessageID != rec.PreviewMessageID {
		t.Errorf("edited message %d, preview is %d", edited[0].MessageID, rec.PreviewMessageID)
	}
	if !strings.Contains(edited[0].Text, "Зламаний принтер у бухгалтерії") {
		t.Errorf("edited text = %q", edited[0].Text)
	}
	if edited[0].ReplyMarkup == nil {
		t.Error("updated draft must carry the keyboard again")
	}
}

func TestHandleCallbackConfirmSubmits(t *testing.T) {
	t.Parallel()

	var submitted struct {
		mu    sync.Mutex
		count int
		body  map[string]any
	}
	hd := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		submitted.mu.Lock()
		submitted.count++
		_ = json.Unmarshal(raw, &submitted.body)
		submitted.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"id":"42"}`))
	}))
	defer hd.Close()

	tg := &fakeTelegram{}
	b := newTestBot(t, tg, hd.URL)
	ctx := context.Background()

	b.handleMessage(ctx, userMessage(11, 11, "принтер не працює, терміново потрібно"))
	b.handleCallback(ctx, &telegramCallbackQuery{
		ID:      "cb2",
		From:    &telegramUser{ID: 11},
		Message: &telegramMessage{Chat: &telegramChat{ID: 11}},
		Data:    callbackConfirm,
	})

	submitted.mu.Lock()
	count, body := submitted.count, submitted.body
	submitted.mu.Unlock()
	if count != 1 {
		t.Fatalf("helpdesk called %d times, want 1", count)
	}
	if body["group_id"] != float64(1) || body["priority_id"] != float64(3) {
		t.Errorf("mapping = group %v priority %v", body["group_id"], body["priority_id"])
	}

	if _, ok := b.sessions.Get(11); ok {
		t.Error("session must be cleared after confirm")
	}
	if !strings.Contains(tg.lastSent(t).Text, "передано до служби підтримки") {
		t.Errorf("confirmation reply = %q", tg.lastSent(t).Text)
	}
}

func TestHandleCallbackCancel(t *testing.T) {
	t.Parallel()

	tg := &fakeTelegram{}
	b := newTestBot(t, tg, "http://127.0.0.1:0")
	ctx := context.Background()

	b.handleMessage(ctx, userMessage(13, 13, "принтер не працює, терміново потрібно"))
	b.handleCallback(ctx, &telegramCallbackQuery{
		ID:   "cb3",
		From: &telegramUser{ID: 13},
		Data: callbackCancel,
	})

	if _, ok := b.sessions.Get(13); ok {
		t.Error("session must be cleared after cancel")
	}
	if !strings.Contains(tg.lastSent(t).Text, "скасовано") {
		t.Errorf("cancel reply = %q", tg.lastSent(t).Text)
	}
}

func TestHandleCallbackConfirmWithoutPending(t *testing.T) {
	t.Parallel()

	tg := &fakeTelegram{}
	b := newTestBot(t, tg, "http://127.0.0.1:0")

	b.handleCallback(context.Background(), &telegramCallbackQuery{
		ID:   "cb4",
		From: &telegramUser{ID: 99},
		Data: callbackConfirm,
	})

	if !strings.Contains(tg.lastSent(t).Text, "Немає активної заявки") {
		t.Errorf("reply = %q", tg.lastSent(t).Text)
	}
}
