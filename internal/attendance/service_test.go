package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"classtrack/internal/sessiontoken"
)

type fakeRepo struct {
	records []Record
	nextID  int64
}

func (f *fakeRepo) Insert(_ context.Context, rec Record) (Record, error) {
	for _, r := range f.records {
		if r.SessionID == rec.SessionID && r.StudentID == rec.StudentID {
			return Record{}, ErrAlreadyMarked
		}
	}
	f.nextID++
	rec.ID = f.nextID
	f.records = append(f.records, rec)
	return rec, nil
}

type fakeProfiles map[string]Profile

func (f fakeProfiles) Profile(_ context.Context, userID string) (Profile, error) {
	p, ok := f[userID]
	if !ok {
		return Profile{}, errors.New("no such user")
	}
	return p, nil
}

func setup(t *testing.T) (*Service, *fakeRepo, *sessiontoken.Codec) {
	t.Helper()
	repo := &fakeRepo{}
	profiles := fakeProfiles{
		"stu-1": {RegNo: "2024-SE-01", Name: "Asad"},
		"stu-2": {RegNo: "2024-SE-02", Name: "Bilal"},
	}
	codec := sessiontoken.New("secret")
	return NewService(repo, profiles, codec), repo, codec
}

func issueToken(t *testing.T, codec *sessiontoken.Codec, batchID, dateYMD string) string {
	t.Helper()
	tok, err := codec.Issue(sessiontoken.Payload{
		SessionID: "sess-1",
		BatchID:   batchID,
		DateYMD:   dateYMD,
		Slot:      sessiontoken.Slot{Subject: "OS", Start: "08:30", End: "10:30", Location: "Lab 2"},
	})
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	return tok
}

func futureMonday(t *testing.T) string {
	t.Helper()
	d := time.Now().AddDate(0, 0, 1)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}

func futureSaturday(t *testing.T) string {
	t.Helper()
	d := time.Now().AddDate(0, 0, 1)
	for d.Weekday() != time.Saturday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}

func TestMarkSuccessUsesTokenSnapshotAndLiveProfile(t *testing.T) {
	svc, repo, codec := setup(t)
	monday := futureMonday(t)
	tok := issueToken(t, codec, "b1", monday)

	rec, err := svc.Mark(context.Background(), Identity{UserID: "stu-1", BatchID: "b1"}, tok)
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if rec.Subject != "OS" || rec.Start != "08:30" || rec.End != "10:30" || rec.Location != "Lab 2" {
		t.Errorf("record slot fields %+v not taken from token snapshot", rec)
	}
	if rec.RegNo != "2024-SE-01" || rec.Name != "Asad" {
		t.Errorf("record profile fields %+v not resolved at mark time", rec)
	}
	if rec.DateYMD != monday || rec.BatchID != "b1" || rec.SessionID != "sess-1" {
		t.Errorf("record identity fields wrong: %+v", rec)
	}
	if rec.TS.IsZero() {
		t.Error("record has no mark timestamp")
	}
	if len(repo.records) != 1 {
		t.Errorf("repo holds %d records, want 1", len(repo.records))
	}
}

func TestMarkInvalidToken(t *testing.T) {
	svc, repo, _ := setup(t)
	other := sessiontoken.New("some-other-secret")
	tok, _ := other.Issue(sessiontoken.Payload{SessionID: "sess-1", BatchID: "b1", DateYMD: futureMonday(t)})

	_, err := svc.Mark(context.Background(), Identity{UserID: "stu-1", BatchID: "b1"}, tok)
	if !errors.Is(err, sessiontoken.ErrInvalidOrExpired) {
		t.Errorf("Mark(foreign-signed token) error = %v, want ErrInvalidOrExpired", err)
	}
	_, err = svc.Mark(context.Background(), Identity{UserID: "stu-1", BatchID: "b1"}, "garbage")
	if !errors.Is(err, sessiontoken.ErrInvalidOrExpired) {
		t.Errorf("Mark(garbage) error = %v, want ErrInvalidOrExpired", err)
	}
	if len(repo.records) != 0 {
		t.Errorf("rejected marks left %d records", len(repo.records))
	}
}

func TestMarkWrongBatch(t *testing.T) {
	svc, repo, codec := setup(t)
	tok := issueToken(t, codec, "b1", futureMonday(t))

	_, err := svc.Mark(context.Background(), Identity{UserID: "stu-2", BatchID: "b2"}, tok)
	if !errors.Is(err, ErrWrongBatch) {
		t.Errorf("Mark(cross-batch) error = %v, want ErrWrongBatch", err)
	}
	if len(repo.records) != 0 {
		t.Error("cross-batch mark wrote a record")
	}
}

func TestMarkWeekendToken(t *testing.T) {
	svc, _, codec := setup(t)
	tok := issueToken(t, codec, "b1", futureSaturday(t))

	_, err := svc.Mark(context.Background(), Identity{UserID: "stu-1", BatchID: "b1"}, tok)
	if !errors.Is(err, ErrWeekendClosed) {
		t.Errorf("Mark(weekend-dated token) error = %v, want ErrWeekendClosed", err)
	}
}

func TestMarkDuplicateRejected(t *testing.T) {
	svc, repo, codec := setup(t)
	tok := issueToken(t, codec, "b1", futureMonday(t))
	caller := Identity{UserID: "stu-1", BatchID: "b1"}

	if _, err := svc.Mark(context.Background(), caller, tok); err != nil {
		t.Fatalf("first Mark failed: %v", err)
	}
	if _, err := svc.Mark(context.Background(), caller, tok); !errors.Is(err, ErrAlreadyMarked) {
		t.Errorf("second Mark error = %v, want ErrAlreadyMarked", err)
	}
	if len(repo.records) != 1 {
		t.Errorf("duplicate scan left %d records, want 1", len(repo.records))
	}

	// a different student marking the same session is fine
	if _, err := svc.Mark(context.Background(), Identity{UserID: "stu-2", BatchID: "b1"}, tok); err != nil {
		t.Errorf("second student Mark failed: %v", err)
	}
}
