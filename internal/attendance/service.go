// Package attendance validates presented session tokens and records
// presence. All checks are local and terminal: a rejected mark is never
// retried server-side.
package attendance

import (
	"context"
	"errors"
	"time"

	"classtrack/internal/calendar"
	"classtrack/internal/sessiontoken"
)

var (
	// ErrWrongBatch means the token was minted for another batch.
	ErrWrongBatch = errors.New("wrong batch")
	// ErrWeekendClosed rejects tokens dated on a Saturday or Sunday. The
	// schedule never offers weekend slots, but a forged or replayed token
	// could carry one, so marking re-derives the check itself.
	ErrWeekendClosed = errors.New("weekend is off")
	// ErrAlreadyMarked means this student already marked this session.
	ErrAlreadyMarked = errors.New("attendance already marked for this session")
)

// Record is one row asserting presence. Profile fields are captured at mark
// time; slot fields come from the token's snapshot, not a live lookup.
type Record struct {
	ID        int64     `json:"id,omitempty"`
	TS        time.Time `json:"ts"`
	DateYMD   string    `json:"date_ymd"`
	BatchID   string    `json:"batch_id"`
	SessionID string    `json:"session_id"`
	StudentID string    `json:"student_id"`
	RegNo     string    `json:"reg_no"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Start     string    `json:"start_t"`
	End       string    `json:"end_t"`
	Location  string    `json:"location"`
}

// Identity is the authenticated caller, resolved by the auth layer.
type Identity struct {
	UserID  string
	BatchID string
}

// Profile is the student's current registration data.
type Profile struct {
	RegNo string
	Name  string
}

// Repository persists attendance records.
type Repository interface {
	Insert(ctx context.Context, rec Record) (Record, error)
}

// ProfileFinder looks up the caller's profile at mark time.
type ProfileFinder interface {
	Profile(ctx context.Context, userID string) (Profile, error)
}

// Service performs the verify-then-append mark protocol.
type Service struct {
	repo     Repository
	profiles ProfileFinder
	codec    *sessiontoken.Codec
	now      func() time.Time
}

// NewService creates a marking service.
func NewService(repo Repository, profiles ProfileFinder, codec *sessiontoken.Codec) *Service {
	return &Service{repo: repo, profiles: profiles, codec: codec, now: time.Now}
}

// Mark validates tokenStr against the caller and appends one record.
// Validation order: signature/expiry, batch match, weekend policy, then the
// uniqueness constraint at insert. Each mark attempt is independent; there
// is no coordination between concurrent scans beyond the database index.
func (s *Service) Mark(ctx context.Context, caller Identity, tokenStr string) (Record, error) {
	payload, err := s.codec.Verify(tokenStr)
	if err != nil {
		return Record{}, err
	}
	if caller.BatchID != payload.BatchID {
		return Record{}, ErrWrongBatch
	}
	day, err := calendar.ParseYMD(payload.DateYMD)
	if err != nil {
		return Record{}, sessiontoken.ErrInvalidOrExpired
	}
	if calendar.IsWeekend(day) {
		return Record{}, ErrWeekendClosed
	}

	profile, err := s.profiles.Profile(ctx, caller.UserID)
	if err != nil {
		return Record{}, err
	}

	return s.repo.Insert(ctx, Record{
		TS:        s.now().UTC(),
		DateYMD:   payload.DateYMD,
		BatchID:   payload.BatchID,
		SessionID: payload.SessionID,
		StudentID: caller.UserID,
		RegNo:     profile.RegNo,
		Name:      profile.Name,
		Subject:   payload.Slot.Subject,
		Start:     payload.Slot.Start,
		End:       payload.Slot.End,
		Location:  payload.Slot.Location,
	})
}
