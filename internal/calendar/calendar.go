// Package calendar holds the date arithmetic shared by schedule lookup and
// attendance validation, so weekend policy is derived the same way in both.
package calendar

import (
	"errors"
	"time"
)

// Layout for wall-clock dates exchanged with clients.
const LayoutYMD = "2006-01-02"

var ErrBadDate = errors.New("calendar: bad date, want YYYY-MM-DD")

// ParseYMD parses a YYYY-MM-DD string as local midnight.
func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation(LayoutYMD, s, time.Local)
	if err != nil {
		return time.Time{}, ErrBadDate
	}
	return t, nil
}

// WeekdayIndex returns the weekday of t, 0=Sunday..6=Saturday.
func WeekdayIndex(t time.Time) int {
	return int(t.Weekday())
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// EndOfDay returns 23:59:59 local time on the same calendar day as t.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
