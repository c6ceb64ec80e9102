package web

import (
	"strings"
	"time"
)

// editWindowDays is how long the original registrant may keep changing
// a report, counted in whole days from the registration date. Day
// seven is still allowed; day eight is not.
const editWindowDays = 7

// FirstSegment returns the text before the first " | " separator. The
// audit trail only ever appends segments, so the first one is always
// the original registration.
func FirstSegment(s string) string {
	if i := strings.Index(s, " | "); i >= 0 {
		return s[:i]
	}
	return s
}

// CanModify decides whether a user may change or delete a report.
// Admins always may. Anyone else must be the original registrant (the
// username appears in the first registered_by segment) and still be
// inside the edit window measured from the first registration date. A
// registration date that will not parse closes the window.
func CanModify(username string, isAdmin bool, registeredBy, registeredDate string, today time.Time) bool {
	if isAdmin {
		return true
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return false
	}
	if !strings.Contains(strings.ToLower(FirstSegment(registeredBy)), username) {
		return false
	}
	regDate, err := time.Parse("2006-01-02", strings.TrimSpace(FirstSegment(registeredDate)))
	if err != nil {
		return false
	}
	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	days := int(day(today).Sub(day(regDate)).Hours() / 24)
	return days <= editWindowDays
}
