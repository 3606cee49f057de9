package ticket

import (
	"errors"
	"strings"
)

// EditKind is the classified meaning of a free-text edit instruction.
type EditKind int

const (
	// EditFreeform is the fallback: no field trigger matched, so the whole
	// instruction is preserved as an additional-information note instead of
	// being dropped.
	EditFreeform EditKind = iota
	EditRetitle
	EditAppendDescription
	EditReplaceDescription
)

// EditIntent decouples "what the user meant" from "how the display text is
// mutated": ClassifyEdit produces one, ApplyEdit consumes it.
type EditIntent struct {
	Kind EditKind
	Text string
}

var (
	// ErrFieldLocked marks fields derived by the system and closed to
	// manual editing.
	ErrFieldLocked = errors.New("field not editable")
	// ErrUnknownField marks a programmer error: SetField called with a
	// field name outside the display contract.
	ErrUnknownField = errors.New("unknown field")
)

// Trigger words are matched as standalone tokens, not bare substrings, so
// "тема" does not fire inside "система". Inflected forms are enumerated
// because token matching gets no help from suffixes.
var titleTriggers = []string{
	"заголовок", "заголовка", "заголовку", "заголовком",
	"назву", "назва", "назви", "назвою",
	"название", "названия", "названию", "названием",
	"заглавие", "тему", "тема", "теми", "темы", "теме", "темою",
	"title",
}

var descriptionTriggers = []string{
	"опис", "опису", "описа", "описі", "описом",
	"описание", "описания", "описанию", "описании", "описанием",
	"description", "деталі", "детали", "текст заявки",
}

var replaceVerbs = []string{
	"заміни", "замінити", "замени", "заменить", "перепиши", "переписати",
	"переписать", "зміни", "змінити", "змініть", "измени", "изменить",
	"replace", "change",
}

// connectorTokens are trigger words and connectors stripped from the front
// of an instruction before the remainder becomes the new field value.
var connectorTokens = map[string]bool{
	"змінити": true, "зміни": true, "змініть": true, "змініти": true,
	"изменить": true, "измени": true, "замінити": true, "заміни": true,
	"заменить": true, "замени": true, "перепиши": true, "переписати": true,
	"переписать": true, "додай": true, "додати": true, "добавь": true,
	"добавить": true, "допиши": true, "дописати": true, "change": true,
	"replace": true, "set": true, "add": true, "append": true,
	"заголовок": true, "заголовка": true, "заголовку": true,
	"назву": true, "назва": true, "назви": true, "название": true,
	"названия": true, "тему": true, "тема": true, "title": true,
	"опис": true, "опису": true, "описа": true, "описание": true,
	"описания": true, "описанию": true, "description": true,
	"деталі": true, "детали": true, "текст": true, "заявки": true,
	"на": true, "в": true, "до": true, "к": true, "to": true,
	"як": true, "как": true,
}

// ClassifyEdit scans a free-text edit instruction for field triggers and
// returns the intent. Title triggers win over description triggers; a
// description edit is an append unless the instruction also carries an
// explicit replace/change verb; no trigger at all degrades to Freeform.
func ClassifyEdit(instruction string) EditIntent {
	instruction = strings.TrimSpace(instruction)
	lower := strings.ToLower(instruction)
	words := standaloneWords(lower)

	if containsTrigger(lower, words, titleTriggers) {
		return EditIntent{Kind: EditRetitle, Text: stripConnectors(instruction)}
	}
	if containsTrigger(lower, words, descriptionTriggers) {
		kind := EditAppendDescription
		if containsAny(lower, replaceVerbs) {
			kind = EditReplaceDescription
		}
		return EditIntent{Kind: kind, Text: stripConnectors(instruction)}
	}
	return EditIntent{Kind: EditFreeform, Text: instruction}
}

// containsTrigger matches single-word triggers against the standalone token
// set; multi-word triggers fall back to substring matching.
func containsTrigger(lower string, words map[string]bool, triggers []string) bool {
	for _, trig := range triggers {
		if strings.Contains(trig, " ") {
			if strings.Contains(lower, trig) {
				return true
			}
			continue
		}
		if words[trig] {
			return true
		}
	}
	return false
}

func containsAny(lower string, triggers []string) bool {
	for _, trig := range triggers {
		if strings.Contains(lower, trig) {
			return true
		}
	}
	return false
}

// stripConnectors drops leading trigger and connector words, keeping the
// instruction's own casing for the remainder.
func stripConnectors(instruction string) string {
	tokens := strings.Fields(instruction)
	i := 0
	for i < len(tokens) {
		key := strings.Trim(strings.ToLower(tokens[i]), ".,!?:;\"«»")
		if !connectorTokens[key] {
			break
		}
		i++
	}
	return strings.TrimSpace(strings.Join(tokens[i:], " "))
}

// ApplyEdit applies a classified intent to display text and returns the
// updated text; the input is never mutated. Malformed display text degrades
// to empty parsed fields rather than failing.
func ApplyEdit(display string, intent EditIntent) string {
	f := ParseFields(display)
	switch intent.Kind {
	case EditRetitle:
		f.Title = intent.Text
	case EditReplaceDescription:
		f.Description = intent.Text
	case EditAppendDescription:
		f.Description = joinDescription(f.Description, intent.Text)
	case EditFreeform:
		f.Description = joinDescription(f.Description, "Додаткова інформація: "+intent.Text)
	}
	return RenderFields(f)
}

// joinDescription appends with a paragraph break when the existing text is
// already multi-line, otherwise with a sentence separator.
func joinDescription(existing, addition string) string {
	existing = strings.TrimRight(existing, " \t")
	addition = strings.TrimSpace(addition)
	if existing == "" {
		return addition
	}
	if addition == "" {
		return existing
	}
	if strings.Contains(existing, "\n") {
		return existing + "\n\n" + addition
	}
	if strings.HasSuffix(existing, ".") || strings.HasSuffix(existing, "!") || strings.HasSuffix(existing, "?") {
		return existing + " " + addition
	}
	return existing + ". " + addition
}

// SetField substitutes one field's value directly. Only title and
// description are open; priority, department and category are derived by
// the classifier and refuse with ErrFieldLocked. Any other name is a
// programmer error.
func SetField(display, field, value string) (string, error) {
	f := ParseFields(display)
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "title":
		f.Title = strings.TrimSpace(value)
	case "description":
		f.Description = strings.TrimSpace(value)
	case "priority", "department", "category":
		return display, ErrFieldLocked
	default:
		return display, ErrUnknownField
	}
	return RenderFields(f), nil
}

// plainFieldNames maps the field-name prefixes accepted in full-document
// edit mode onto display labels. Both the localized labels and their English
// aliases are accepted, case-insensitively.
var plainFieldNames = map[string]string{
	"id":          labelID,
	"відділ":      labelDepartment,
	"отдел":       labelDepartment,
	"department":  labelDepartment,
	"категорія":   labelCategory,
	"категория":   labelCategory,
	"category":    labelCategory,
	"пріоритет":   labelPriority,
	"приоритет":   labelPriority,
	"priority":    labelPriority,
	"заголовок":   labelTitle,
	"назва":       labelTitle,
	"название":    labelTitle,
	"title":       labelTitle,
	"опис":        labelDescription,
	"описание":    labelDescription,
	"description": labelDescription,
	"мова":        labelLanguage,
	"язык":        labelLanguage,
	"language":    labelLanguage,
	"створено":    labelCreatedAt,
	"создано":     labelCreatedAt,
	"created":     labelCreatedAt,
	"статус":      labelStatus,
	"status":      labelStatus,
}

// ReflowDocument applies a full alternate plain-text rendering of the ticket
// ("Заголовок: ...", "Опис: ...") on top of the current display text and
// returns the canonical emoji-tagged form. Lines without a recognized
// field-name prefix are not dropped: they are preserved as a trailing
// description note, consistent with the freeform-edit fallback.
func ReflowDocument(display, plain string) string {
	f := ParseFields(display)
	var current *string
	var leftovers []string
	for _, line := range strings.Split(plain, "\n") {
		name, value, ok := splitPlainLine(line)
		if ok {
			if target := fieldByLabel(&f, plainFieldNames[name]); target != nil {
				*target = value
				current = target
				continue
			}
		}
		if strings.TrimSpace(line) == "" {
			current = nil
			continue
		}
		if current != nil {
			*current += "\n" + line
			continue
		}
		leftovers = append(leftovers, strings.TrimSpace(line))
	}
	if len(leftovers) > 0 {
		f.Description = joinDescription(f.Description, "Додаткова інформація: "+strings.Join(leftovers, " "))
	}
	f.trimTrailing()
	return RenderFields(f)
}

// IsDocumentEdit reports whether the text reads as a full plain-text
// rendering of the ticket (two or more recognized field-name lines) rather
// than a single edit instruction.
func IsDocumentEdit(text string) bool {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if _, _, ok := splitPlainLine(line); ok {
			n++
		}
	}
	return n >= 2
}

func splitPlainLine(line string) (name, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	name = strings.ToLower(strings.TrimSpace(line[:idx]))
	if _, known := plainFieldNames[name]; !known {
		return "", "", false
	}
	return name, strings.TrimSpace(line[idx+1:]), true
}
