package render

import (
	"strings"
	"time"
)

// PhotoState distinguishes the three photo outcomes on a rendered card.
// "no photo on file" and "photo failed to load" are different states and get
// different placeholders.
type PhotoState int

const (
	PhotoNone PhotoState = iota
	PhotoResolved
	PhotoFailed
)

// Resolved reports a displayable photo URL.
func (s PhotoState) Resolved() bool { return s == PhotoResolved }

// Failed reports a photo reference that could not be resolved.
func (s PhotoState) Failed() bool { return s == PhotoFailed }

// Person carries the read-only data a card render needs. Associates and
// dependents share the shape; Role is only meaningful for associates.
type Person struct {
	Name            string
	RG              string
	CPF             string
	Role            string
	Company         string
	AssociationDate *time.Time
	ExpirationDate  *time.Time

	Photo    PhotoState
	PhotoURL string
}

// FormatDate renders a date in the Brazilian day/month/year form. A missing
// date renders as an empty string.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
