// Package schedule resolves weekly timetables. Weekdays are stored
// 1=Monday..5=Friday; weekend dates never resolve to slots.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"classtrack/internal/calendar"
)

// Slot is one recurring weekly class meeting. JSON keys mirror the storage
// columns because rows go straight out to clients.
type Slot struct {
	ID       string `json:"id"`
	BatchID  string `json:"batch_id"`
	Weekday  int    `json:"weekday"`
	Subject  string `json:"subject"`
	Start    string `json:"start_t"`
	End      string `json:"end_t"`
	Location string `json:"location"`
}

// Week groups a batch's slots by day, Monday through Friday.
type Week struct {
	Mon []Slot `json:"mon"`
	Tue []Slot `json:"tue"`
	Wed []Slot `json:"wed"`
	Thu []Slot `json:"thu"`
	Fri []Slot `json:"fri"`
}

// WeekInput is the admin-supplied replacement timetable.
type WeekInput struct {
	Mon []SlotInput `json:"mon"`
	Tue []SlotInput `json:"tue"`
	Wed []SlotInput `json:"wed"`
	Thu []SlotInput `json:"thu"`
	Fri []SlotInput `json:"fri"`
}

// SlotInput is one slot as submitted by the schedule editor.
type SlotInput struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Location string `json:"location"`
}

// Repository is the persistence surface the service needs.
type Repository interface {
	SlotsForWeekday(ctx context.Context, batchID string, weekday int) ([]Slot, error)
	Week(ctx context.Context, batchID string) ([]Slot, error)
	ReplaceWeek(ctx context.Context, batchID string, slots []Slot) error
}

// Service answers timetable queries and applies weekly replacements.
type Service struct {
	repo Repository
}

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SlotsForDate returns the slots applicable on date, ordered by start time.
// Weekend dates yield an empty list, not an error.
func (s *Service) SlotsForDate(ctx context.Context, batchID string, date time.Time) ([]Slot, error) {
	if calendar.IsWeekend(date) {
		return []Slot{}, nil
	}
	return s.repo.SlotsForWeekday(ctx, batchID, calendar.WeekdayIndex(date))
}

// WeekFor returns the full weekly timetable grouped Monday..Friday.
func (s *Service) WeekFor(ctx context.Context, batchID string) (Week, error) {
	slots, err := s.repo.Week(ctx, batchID)
	if err != nil {
		return Week{}, err
	}
	w := Week{Mon: []Slot{}, Tue: []Slot{}, Wed: []Slot{}, Thu: []Slot{}, Fri: []Slot{}}
	for _, sl := range slots {
		switch sl.Weekday {
		case 1:
			w.Mon = append(w.Mon, sl)
		case 2:
			w.Tue = append(w.Tue, sl)
		case 3:
			w.Wed = append(w.Wed, sl)
		case 4:
			w.Thu = append(w.Thu, sl)
		case 5:
			w.Fri = append(w.Fri, sl)
		}
	}
	return w, nil
}

// ReplaceWeek swaps a batch's entire timetable. Every slot must have a
// well-formed HH:MM window with start strictly before end.
func (s *Service) ReplaceWeek(ctx context.Context, batchID string, in WeekInput) error {
	var slots []Slot
	days := [][]SlotInput{in.Mon, in.Tue, in.Wed, in.Thu, in.Fri}
	for i, day := range days {
		for _, si := range day {
			if err := validateWindow(si.Start, si.End); err != nil {
				return fmt.Errorf("%s %q: %w", dayName(i+1), si.Subject, err)
			}
			id := si.ID
			if id == "" {
				id = uuid.NewString()
			}
			slots = append(slots, Slot{
				ID:       id,
				BatchID:  batchID,
				Weekday:  i + 1,
				Subject:  si.Subject,
				Start:    si.Start,
				End:      si.End,
				Location: si.Location,
			})
		}
	}
	return s.repo.ReplaceWeek(ctx, batchID, slots)
}

var errBadWindow = errors.New("start must be before end (HH:MM)")

func validateWindow(start, end string) error {
	st, err := time.Parse("15:04", start)
	if err != nil {
		return errBadWindow
	}
	en, err := time.Parse("15:04", end)
	if err != nil {
		return errBadWindow
	}
	if !st.Before(en) {
		return errBadWindow
	}
	return nil
}

func dayName(weekday int) string {
	return [...]string{"", "mon", "tue", "wed", "thu", "fri"}[weekday]
}
