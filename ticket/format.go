package ticket

import (
	"regexp"
	"strings"
	"time"
)

// Fields is a ticket flattened into the display-text string values. An empty
// string means "field absent", never an error; callers stay defensive about
// empty fields downstream.
type Fields struct {
	ID          string
	Department  string
	Category    string
	Priority    string
	Title       string
	Description string
	Language    string
	CreatedAt   string
	Status      string
}

// DisplayTimeLayout is how the creation timestamp appears in display text.
const DisplayTimeLayout = "02.01.2006 15:04:05"

const displayHeader = "🎫 **Нова заявка**"

// Labels of the display lines. The emoji+bold-label pair on each line is the
// wire contract with the confirmation UI and the edit engine; changing any
// of them silently breaks downstream parsing.
const (
	labelID          = "ID"
	labelDepartment  = "Відділ"
	labelCategory    = "Категорія"
	labelPriority    = "Пріоритет"
	labelTitle       = "Заголовок"
	labelDescription = "Опис"
	labelLanguage    = "Мова"
	labelCreatedAt   = "Створено"
	labelStatus      = "Статус"
)

const (
	genericDepartmentEmoji = "🏢"
	defaultPriorityEmoji   = "🟡"
)

var departmentEmoji = map[string]string{
	string(DepartmentIT):    "💻",
	string(DepartmentLegal): "⚖️",
	string(DepartmentHR):    "👥",
}

var priorityEmoji = map[string]string{
	string(PriorityHigh):     "🔴",
	string(PriorityMedium):   "🟡",
	string(PriorityLow):      "🟢",
	string(PriorityCritical): "⚫",
}

// Render serializes a ticket into its canonical display text: one line per
// field in fixed order. The output is byte-for-byte reproducible for the
// same ticket so that ParseFields round-trips exactly.
func Render(t Ticket) string {
	return RenderFields(Fields{
		ID:          t.ID,
		Department:  string(t.Department),
		Category:    t.Category,
		Priority:    string(t.Priority),
		Title:       t.Title,
		Description: t.Description,
		Language:    string(t.Language),
		CreatedAt:   t.CreatedAt.Format(DisplayTimeLayout),
		Status:      string(t.Status),
	})
}

// RenderFields renders already-flattened field values. The edit engine uses
// it to rebuild display text after mutating parsed fields.
func RenderFields(f Fields) string {
	deptEmoji, ok := departmentEmoji[f.Department]
	if !ok {
		deptEmoji = genericDepartmentEmoji
	}
	prioEmoji, ok := priorityEmoji[f.Priority]
	if !ok {
		prioEmoji = defaultPriorityEmoji
	}

	var b strings.Builder
	b.WriteString(displayHeader + "\n\n")
	b.WriteString("🆔 **" + labelID + ":** " + f.ID + "\n")
	b.WriteString(deptEmoji + " **" + labelDepartment + ":** " + f.Department + "\n")
	b.WriteString("📂 **" + labelCategory + ":** " + f.Category + "\n")
	b.WriteString(prioEmoji + " **" + labelPriority + ":** " + f.Priority + "\n")
	b.WriteString("📝 **" + labelTitle + ":** " + f.Title + "\n")
	b.WriteString("📄 **" + labelDescription + ":** " + f.Description + "\n")
	b.WriteString("🌐 **" + labelLanguage + ":** " + f.Language + "\n")
	b.WriteString("🕐 **" + labelCreatedAt + ":** " + f.CreatedAt + "\n")
	b.WriteString("📌 **" + labelStatus + ":** " + f.Status)
	return b.String()
}

// anchorLine matches "<emoji> **Label:** value". The first group is the
// emoji cluster (anything without spaces or asterisks), so parsing tolerates
// emoji drift as long as the bold label survives.
var anchorLine = regexp.MustCompile(`^([^\s*]+)\s+\*\*([^:*]+):\*\*\s?(.*)$`)

// ParseFields extracts field values back out of display text. Lines that do
// not open with a recognized emoji+label anchor are folded into the value of
// the preceding field, which is what lets multi-line descriptions survive
// the round trip. Unmatched fields stay empty.
func ParseFields(display string) Fields {
	var f Fields
	var current *string
	for _, line := range strings.Split(display, "\n") {
		m := anchorLine.FindStringSubmatch(line)
		if m != nil {
			if target := fieldByLabel(&f, strings.TrimSpace(m[2])); target != nil {
				*target = m[3]
				current = target
				continue
			}
		}
		if current != nil {
			*current += "\n" + line
		}
	}
	f.trimTrailing()
	return f
}

func fieldByLabel(f *Fields, label string) *string {
	switch label {
	case labelID:
		return &f.ID
	case labelDepartment:
		return &f.Department
	case labelCategory:
		return &f.Category
	case labelPriority:
		return &f.Priority
	case labelTitle:
		return &f.Title
	case labelDescription:
		return &f.Description
	case labelLanguage:
		return &f.Language
	case labelCreatedAt:
		return &f.CreatedAt
	case labelStatus:
		return &f.Status
	}
	return nil
}

// trimTrailing drops whitespace that continuation-line folding may have
// glued onto field tails.
func (f *Fields) trimTrailing() {
	for _, p := range []*string{
		&f.ID, &f.Department, &f.Category, &f.Priority, &f.Title,
		&f.Description, &f.Language, &f.CreatedAt, &f.Status,
	} {
		*p = strings.TrimRight(*p, " \t\n")
	}
}

// ParseCreatedAt parses the localized timestamp out of parsed fields.
func ParseCreatedAt(f Fields) (time.Time, bool) {
	t, err := time.ParseInLocation(DisplayTimeLayout, f.CreatedAt, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
