package ticket

import (
	"strings"
	"time"
	"unicode"
)

// Classifier assigns department, priority, language and title from free
// text. It is a bag-of-keywords rule engine over a Lexicon, deterministic
// and explainable; no model runs in-process.
type Classifier struct {
	lex *Lexicon
}

func NewClassifier(lex *Lexicon) *Classifier {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Classifier{lex: lex}
}

// Classify builds a new open ticket from validated input text. The result
// depends only on the arguments and the wall clock.
func (c *Classifier) Classify(text, subject, requesterID string) Ticket {
	return c.classifyAt(text, subject, requesterID, time.Now())
}

func (c *Classifier) classifyAt(text, subject, requesterID string, now time.Time) Ticket {
	desc := strings.TrimSpace(text)
	return Ticket{
		ID:          NewID(now),
		Department:  c.DetectDepartment(desc),
		Category:    DefaultCategory,
		Priority:    c.DetectPriority(desc),
		Title:       deriveTitle(desc, subject),
		Description: desc,
		Requester:   requesterID,
		Language:    c.DetectLanguage(desc),
		CreatedAt:   now,
		Status:      StatusOpen,
	}
}

// departmentOrder fixes the scoring iteration so ties resolve the same way
// on every run, with IT first.
var departmentOrder = []Department{DepartmentIT, DepartmentLegal, DepartmentHR}

// DetectDepartment scores each department's keywords against the lowercased
// text: one point per substring hit, half a point extra when the keyword
// stands alone as a word. Highest score wins; any tie at the top, including
// a Legal/HR tie with IT at zero, and the all-zero case fall back to IT.
func (c *Classifier) DetectDepartment(text string) Department {
	lower := strings.ToLower(text)
	words := standaloneWords(lower)

	best := DepartmentIT
	bestScore := 0.0
	tied := false
	for _, dept := range departmentOrder {
		score := c.departmentScore(lower, words, dept)
		switch {
		case score > bestScore:
			best, bestScore, tied = dept, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}
	if tied {
		return DepartmentIT
	}
	return best
}

func (c *Classifier) departmentScore(lower string, words map[string]bool, dept Department) float64 {
	var score float64
	for _, kw := range c.lex.Departments[dept] {
		if !strings.Contains(lower, kw) {
			continue
		}
		score++
		if words[kw] {
			score += 0.5
		}
	}
	return score
}

// standaloneWords is the set of whitespace-delimited tokens with surrounding
// punctuation trimmed, used for the standalone-keyword bonus.
func standaloneWords(lower string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.Fields(lower) {
		tok = strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
		})
		if tok != "" {
			out[tok] = true
		}
	}
	return out
}

// DetectPriority resolves priority with a fixed check order: any High
// keyword wins outright, then any Low keyword, then Medium; no match at all
// defaults to Medium. A message carrying both High and Low markers therefore
// always resolves High.
func (c *Classifier) DetectPriority(text string) Priority {
	lower := strings.ToLower(text)
	for _, prio := range []Priority{PriorityHigh, PriorityLow, PriorityMedium} {
		for _, kw := range c.lex.Priorities[prio] {
			if strings.Contains(lower, kw) {
				return prio
			}
		}
	}
	return PriorityMedium
}

// Letters that exist in Ukrainian but not Russian; each occurrence counts
// double in the language score.
var ukrainianLetters = map[rune]bool{
	'і': true, 'ї': true, 'є': true, 'ґ': true,
}

// DetectLanguage weighs Ukrainian-specific letters (x2) plus marker words
// against Russian marker words. A side only wins outright when its score
// clears 2; everything else, including the all-zero case, is Mixed.
func (c *Classifier) DetectLanguage(text string) Language {
	lower := strings.ToLower(text)

	var uk, ru int
	for _, r := range lower {
		if ukrainianLetters[r] {
			uk += 2
		}
	}
	for _, marker := range c.lex.UkrainianMarkers {
		if strings.Contains(lower, marker) {
			uk++
		}
	}
	for _, marker := range c.lex.RussianMarkers {
		if strings.Contains(lower, marker) {
			ru++
		}
	}

	switch {
	case uk > ru && uk > 2:
		return LanguageUkrainian
	case ru > uk && ru > 2:
		return LanguageRussian
	default:
		return LanguageMixed
	}
}

const (
	titleMaxRunes      = 50
	titleHardCut       = 47
	titleSentenceFloor = 10
	subjectMinRunes    = 6
)

// deriveTitle prefers an explicit subject longer than six characters; else
// it takes the body as-is when short, cuts at a sentence boundary inside
// [10,50) when one exists, and otherwise hard-truncates with an ellipsis.
func deriveTitle(body, subject string) string {
	subject = strings.TrimSpace(subject)
	if len([]rune(subject)) > subjectMinRunes {
		return capitalize(subject)
	}

	runes := []rune(body)
	if len(runes) <= titleMaxRunes {
		return capitalize(body)
	}
	for i := titleSentenceFloor; i < titleMaxRunes && i < len(runes)-1; i++ {
		if isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return capitalize(string(runes[:i+1]))
		}
	}
	return capitalize(string(runes[:titleHardCut])) + "..."
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
