package ticket

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon is the read-only keyword data behind classification. It is plain
// injected data: load one, hand it to NewClassifier, never mutate it after.
type Lexicon struct {
	Departments map[Department][]string `yaml:"departments"`
	Priorities  map[Priority][]string   `yaml:"priorities"`

	// Marker words used by language detection.
	UkrainianMarkers []string `yaml:"ukrainian_markers"`
	RussianMarkers   []string `yaml:"russian_markers"`
}

// DefaultLexicon returns the built-in dictionaries: Ukrainian and Russian
// terms plus the common English/technical vocabulary users mix in.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Departments: map[Department][]string{
			DepartmentIT: {
				"принтер", "комп'ютер", "компьютер", "ноутбук", "монітор", "монитор",
				"мишк", "мыш", "клавіатур", "клавиатур", "інтернет", "интернет",
				"мереж", "сеть", "wifi", "vpn", "пароль", "пошта", "почта", "email",
				"сервер", "програм", "windows", "excel", "1с",
				"не працює", "не работает", "зависає", "зависает", "оновленн",
				"обновлени", "доступ", "акаунт", "аккаунт",
			},
			DepartmentLegal: {
				"договір", "договор", "контракт", "угод", "соглашени", "юрист",
				"суд", "позов", "иск", "претензі", "претензи", "довіреност",
				"доверенност", "підпис", "подпись", "печатк", "печать", "закон",
				"ліцензі", "лицензи", "нда", "nda", "юридичн", "юридическ",
			},
			DepartmentHR: {
				// Stem forms so inflected endings still match by substring.
				"відпустк", "отпуск", "лікарнян", "больничн", "зарплат",
				"премі", "преми", "звільнен", "увольнен", "кадр",
				"співробітник", "сотрудник", "посад", "должност", "графік",
				"график", "відрядженн", "командировк", "навчанн", "обучени",
				"вакансі", "вакансия",
			},
		},
		Priorities: map[Priority][]string{
			PriorityHigh: {
				"терміново", "срочно", "критично", "критичес", "аварія", "авария",
				"негайно", "немедленно", "не працює", "не работает", "зламався",
				"сломался", "зламалась", "сломалась", "впав", "упал", "блокує",
				"блокирует", "asap", "асап", "горить", "горит",
			},
			PriorityLow: {
				"коли зможете", "когда сможете", "не терміново", "не срочно",
				"не поспішаю", "не спешу", "при нагоді", "при случае", "пізніше",
				"позже", "колись", "когда-нибудь", "дрібниця", "мелочь",
			},
			PriorityMedium: {
				"бажано", "желательно", "сьогодні", "сегодня", "завтра",
				"цього тижня", "на этой неделе", "найближчим часом", "в ближайшее время",
			},
		},
		UkrainianMarkers: []string{
			"що", "як", "не працює", "допоможіть", "потрібно", "треба",
			"будь ласка", "дякую", "проблема з", "зламався", "відділ", "заявка",
		},
		RussianMarkers: []string{
			"что", "как", "не работает", "помогите", "нужно", "надо",
			"пожалуйста", "спасибо", "проблема с", "сломался", "отдел", "заявка",
		},
	}
}

// LoadLexicon reads a YAML lexicon file and merges it over the defaults.
// Only the sections present in the file are replaced, so an override file
// may carry just the department keywords of one team.
func LoadLexicon(path string) (*Lexicon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	var override Lexicon
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return nil, fmt.Errorf("decode lexicon %s: %w", path, err)
	}

	lex := DefaultLexicon()
	for dept, words := range override.Departments {
		if len(words) > 0 {
			lex.Departments[dept] = words
		}
	}
	for prio, words := range override.Priorities {
		if len(words) > 0 {
			lex.Priorities[prio] = words
		}
	}
	if len(override.UkrainianMarkers) > 0 {
		lex.UkrainianMarkers = override.UkrainianMarkers
	}
	if len(override.RussianMarkers) > 0 {
		lex.RussianMarkers = override.RussianMarkers
	}
	return lex, nil
}
