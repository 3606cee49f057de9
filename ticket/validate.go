package ticket

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidationResult reports whether input text carries enough information to
// become a ticket. Reason is user-facing Ukrainian text; it is data, not an
// error, and never escalates.
type ValidationResult struct {
	Valid  bool
	Reason string
}

const (
	reasonEmpty         = "Порожнє повідомлення"
	reasonTooShort      = "Повідомлення занадто коротке, мінімум 5 символів"
	reasonRepeatedChars = "Повідомлення містить повторювані символи"
	reasonMeaningless   = "Беззмістовне повідомлення"
	reasonMeaninglessEx = "Беззмістовне повідомлення, опишіть вашу проблему детальніше"
	reasonNoWords       = "Повідомлення не містить змістовних слів"
	reasonOnlyFiller    = "Повідомлення містить лише слова-заповнювачі"
	reasonTooLittle     = "Занадто мало змістовного контенту, додайте більше деталей"
	reasonGibberish     = "Схоже на випадковий набір символів"
)

// junkTokens trips the repeated-junk-token rule ("бла бла бла").
var junkTokens = map[string]bool{
	"бла":  true,
	"bla":  true,
	"blah": true,
	"тест": true,
	"test": true,
	"ля":   true,
}

// fillerTokens are interjections and connectors that carry no content.
var fillerTokens = map[string]bool{
	"ну": true, "от": true, "ось": true, "ага": true, "угу": true,
	"хм": true, "ммм": true, "еее": true, "ой": true, "ай": true,
	"ок": true, "ok": true, "окей": true, "okay": true,
	"да": true, "так": true, "ні": true, "нет": true, "не": true,
	"добре": true, "ладно": true, "well": true, "типу": true, "типа": true,
	"коротше": true, "короче": true, "це": true, "это": true, "и": true,
	"і": true, "а": true, "но": true, "але": true, "ж": true, "же": true,
}

var meaninglessPatterns = []*regexp.Regexp{
	// Lone interjections and laughter.
	regexp.MustCompile(`^(ну+|ага+|угу+|хм+|гм+|мм+|ээ+|ее+|оо+|ха+|хе+|хи+|лол|lol|kek|кек)$`),
	// Yes/no-only replies, possibly with trailing punctuation.
	regexp.MustCompile(`^(так|ні|да|нет|не|yes|no|ok|ок)[.!?\s]*$`),
	// Punctuation only.
	regexp.MustCompile(`^[^\p{L}\p{N}]+$`),
	// Digits only.
	regexp.MustCompile(`^[\d\s.,\-+]+$`),
	// Three or more "blah"-like tokens in a row.
	regexp.MustCompile(`^((бла|ля|bla|blah)[\s,.!\-]*){3,}$`),
}

// Validate rejects low-information input before a ticket gets created.
// Rules run in order, first match wins; the ordering keeps the cheap
// character-level checks ahead of the token-level ones.
func Validate(text string) ValidationResult {
	if strings.TrimSpace(text) == "" {
		return ValidationResult{Reason: reasonEmpty}
	}
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < 5 {
		return ValidationResult{Reason: reasonTooShort}
	}
	if hasRepeatedRun(trimmed, 5) {
		return ValidationResult{Reason: reasonRepeatedChars}
	}

	lower := strings.ToLower(trimmed)
	tokens := strings.Fields(lower)
	if len(tokens) >= 3 && allSameToken(tokens) && junkTokens[tokens[0]] {
		return ValidationResult{Reason: reasonMeaningless}
	}
	if matchesMeaninglessPhrase(lower) {
		return ValidationResult{Reason: reasonMeaninglessEx}
	}

	var multi []string
	for _, tok := range tokens {
		if len([]rune(tok)) > 1 {
			multi = append(multi, tok)
		}
	}
	if len(multi) == 0 {
		return ValidationResult{Reason: reasonNoWords}
	}

	var meaningful []string
	for _, tok := range multi {
		if !fillerTokens[strings.Trim(tok, ".,!?…:;")] {
			meaningful = append(meaningful, tok)
		}
	}
	if len(meaningful) == 0 {
		return ValidationResult{Reason: reasonOnlyFiller}
	}
	if len(meaningful) < 2 {
		return ValidationResult{Reason: reasonTooLittle}
	}

	if looksLikeKeyboardMash(trimmed) {
		return ValidationResult{Reason: reasonGibberish}
	}

	return ValidationResult{Valid: true}
}

// hasRepeatedRun reports a run of n or more identical characters anywhere in
// the text, case-insensitively.
func hasRepeatedRun(text string, n int) bool {
	var prev rune
	count := 0
	for _, r := range text {
		r = unicode.ToLower(r)
		if r == prev {
			count++
			if count >= n {
				return true
			}
		} else {
			prev = r
			count = 1
		}
	}
	return false
}

func allSameToken(tokens []string) bool {
	for _, tok := range tokens[1:] {
		if tok != tokens[0] {
			return false
		}
	}
	return true
}

func matchesMeaninglessPhrase(lower string) bool {
	for _, re := range meaninglessPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	// A doubled short alphabetic pair repeated, e.g. "asasas". RE2 has no
	// backreferences, so this one is checked by hand.
	return isRepeatedPair(lower)
}

func isRepeatedPair(s string) bool {
	runes := []rune(s)
	if len(runes) < 6 || len(runes)%2 != 0 {
		return false
	}
	a, b := runes[0], runes[1]
	if !unicode.IsLetter(a) || !unicode.IsLetter(b) {
		return false
	}
	for i := 0; i < len(runes); i += 2 {
		if runes[i] != a || runes[i+1] != b {
			return false
		}
	}
	return true
}

// keyboardMashPattern matches when the whole whitespace-stripped text is one
// contiguous run of Latin letters. Deliberately crude: it catches "asdfghjkl"
// but also rejects an entire message typed as a single Latin word run, a
// known false positive this heuristic accepts.
var keyboardMashPattern = regexp.MustCompile(`^[a-zA-Z]{5,}$`)

func looksLikeKeyboardMash(text string) bool {
	stripped := strings.Join(strings.Fields(text), "")
	return keyboardMashPattern.MatchString(stripped)
}
