package ticket

import (
	"strings"
	"testing"
	"time"
)

func sampleTicket() Ticket {
	return Ticket{
		ID:          "TKT-20250307150405123",
		Department:  DepartmentIT,
		Category:    DefaultCategory,
		Priority:    PriorityHigh,
		Title:       "Принтер не друкує",
		Description: "принтер не працює, терміново потрібно",
		Requester:   "user-42",
		Language:    LanguageUkrainian,
		CreatedAt:   time.Date(2025, 3, 7, 15, 4, 5, 0, time.Local),
		Status:      StatusOpen,
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	t.Parallel()

	tk := sampleTicket()
	f := ParseFields(Render(tk))

	if f.ID != tk.ID {
		t.Errorf("ID = %q, want %q", f.ID, tk.ID)
	}
	if f.Department != string(tk.Department) {
		t.Errorf("Department = %q, want %q", f.Department, tk.Department)
	}
	if f.Category != tk.Category {
		t.Errorf("Category = %q, want %q", f.Category, tk.Category)
	}
	if f.Priority != string(tk.Priority) {
		t.Errorf("Priority = %q, want %q", f.Priority, tk.Priority)
	}
	if f.Title != tk.Title {
		t.Errorf("Title = %q, want %q", f.Title, tk.Title)
	}
	if f.Description != tk.Description {
		t.Errorf("Description = %q, want %q", f.Description, tk.Description)
	}
	if f.Language != string(tk.Language) {
		t.Errorf("Language = %q, want %q", f.Language, tk.Language)
	}
	if f.CreatedAt != tk.CreatedAt.Format(DisplayTimeLayout) {
		t.Errorf("CreatedAt = %q, want %q", f.CreatedAt, tk.CreatedAt.Format(DisplayTimeLayout))
	}
	if f.Status != string(tk.Status) {
		t.Errorf("Status = %q, want %q", f.Status, tk.Status)
	}
}

func TestRenderIsReproducible(t *testing.T) {
	t.Parallel()

	tk := sampleTicket()
	if Render(tk) != Render(tk) {
		t.Fatal("Render is not byte-for-byte reproducible")
	}
	// parse -> re-render must also be stable, since display text is the
	// edit source of truth.
	first := Render(tk)
	again := RenderFields(ParseFields(first))
	if first != again {
		t.Fatalf("render/parse/render drifted:\n%q\n%q", first, again)
	}
}

func TestRoundTripForClassifiedTickets(t *testing.T) {
	t.Parallel()

	c := NewClassifier(nil)
	inputs := []string{
		"принтер не працює, терміново потрібно",
		"вопрос по отпуску и больничному листу",
		"потрібно перевірити договір з постачальником, коли зможете",
	}
	for _, input := range inputs {
		tk := c.Classify(input, "", "user-1")
		f := ParseFields(Render(tk))
		if f.Description != tk.Description || f.Title != tk.Title ||
			f.Department != string(tk.Department) || f.Priority != string(tk.Priority) {
			t.Errorf("round trip lost fields for %q: %+v", input, f)
		}
	}
}

func TestParseFieldsMultilineDescription(t *testing.T) {
	t.Parallel()

	tk := sampleTicket()
	tk.Description = "перший рядок\nдругий рядок\nтретій рядок"
	f := ParseFields(Render(tk))
	if f.Description != tk.Description {
		t.Fatalf("multi-line description = %q, want %q", f.Description, tk.Description)
	}
	if f.Language != string(tk.Language) {
		t.Fatalf("field after multi-line description lost: %q", f.Language)
	}
}

func TestParseFieldsMissingFieldsAreEmpty(t *testing.T) {
	t.Parallel()

	f := ParseFields("просто текст без жодних маркерів")
	if f != (Fields{}) {
		t.Fatalf("expected all-empty fields, got %+v", f)
	}

	partial := "🆔 **ID:** TKT-1\n📝 **Заголовок:** Тест заголовка"
	got := ParseFields(partial)
	if got.ID != "TKT-1" || got.Title != "Тест заголовка" {
		t.Fatalf("partial parse = %+v", got)
	}
	if got.Description != "" || got.Status != "" {
		t.Fatalf("absent fields must stay empty, got %+v", got)
	}
}

func TestRenderUnknownDepartmentUsesGenericEmoji(t *testing.T) {
	t.Parallel()

	f := Fields{Department: "Finance", Priority: "Urgent"}
	display := RenderFields(f)
	if !strings.Contains(display, genericDepartmentEmoji+" **Відділ:** Finance") {
		t.Errorf("generic department emoji missing:\n%s", display)
	}
	if !strings.Contains(display, defaultPriorityEmoji+" **Пріоритет:** Urgent") {
		t.Errorf("default priority emoji missing:\n%s", display)
	}
}

func TestRenderPriorityEmoji(t *testing.T) {
	t.Parallel()

	cases := map[Priority]string{
		PriorityHigh:     "🔴",
		PriorityMedium:   "🟡",
		PriorityLow:      "🟢",
		PriorityCritical: "⚫",
	}
	for prio, emoji := range cases {
		tk := sampleTicket()
		tk.Priority = prio
		if !strings.Contains(Render(tk), emoji+" **Пріоритет:** "+string(prio)) {
			t.Errorf("priority %s missing emoji %s", prio, emoji)
		}
	}
}

func TestParseCreatedAt(t *testing.T) {
	t.Parallel()

	tk := sampleTicket()
	f := ParseFields(Render(tk))
	got, ok := ParseCreatedAt(f)
	if !ok {
		t.Fatalf("ParseCreatedAt failed for %q", f.CreatedAt)
	}
	if !got.Equal(tk.CreatedAt) {
		t.Fatalf("ParseCreatedAt = %v, want %v", got, tk.CreatedAt)
	}
}
