// Package ticket turns free-form Ukrainian/Russian support requests into
// structured helpdesk tickets: it validates the raw text, classifies
// department/priority/language, renders the ticket to its canonical display
// text and applies user edit instructions to that text. Everything in this
// package is a pure function over its inputs (plus wall-clock time at ticket
// creation); network and session concerns live with the callers.
package ticket

import (
	"fmt"
	"math/rand"
	"time"
)

type Department string

const (
	DepartmentIT    Department = "IT"
	DepartmentLegal Department = "Legal"
	DepartmentHR    Department = "HR"
)

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

type Language string

const (
	LanguageUkrainian Language = "Ukrainian"
	LanguageRussian   Language = "Russian"
	LanguageMixed     Language = "Mixed"
)

type Status string

const StatusOpen Status = "Open"

// DefaultCategory is fixed for every ticket produced by the classifier.
const DefaultCategory = "Request"

type Ticket struct {
	ID          string
	Department  Department
	Category    string
	Priority    Priority
	Title       string
	Description string
	Requester   string
	Language    Language
	CreatedAt   time.Time
	Status      Status
}

// NewID builds a ticket id of the form TKT-<YYYYMMDDHHMMSS><3-digit-random>.
// Two ids minted within the same second collide with probability 1/1000;
// at this bot's traffic that risk is accepted rather than guarded with a
// registry.
func NewID(now time.Time) string {
	return fmt.Sprintf("TKT-%s%03d", now.Format("20060102150405"), rand.Intn(1000))
}
