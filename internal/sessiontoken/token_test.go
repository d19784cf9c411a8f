package sessiontoken

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testSlot = Slot{Subject: "OS", Start: "08:30", End: "10:30", Location: "Lab 2"}

func testPayload() Payload {
	return Payload{
		SessionID: "11111111-2222-3333-4444-555555555555",
		BatchID:   "batch-2024",
		DateYMD:   "2025-03-10",
		Slot:      testSlot,
	}
}

func codecAt(secret string, at time.Time) *Codec {
	c := New(secret)
	c.now = func() time.Time { return at }
	return c
}

func TestRoundTrip(t *testing.T) {
	c := New("secret")
	p := testPayload()
	tok, err := c.Issue(p)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	got, err := c.Verify(tok)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if got != p {
		t.Errorf("Verify() = %+v, want %+v", got, p)
	}
}

func TestTamperRejected(t *testing.T) {
	c := New("secret")
	tok, err := c.Issue(testPayload())
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	for i := 0; i < len(tok); i += 7 {
		mangled := tok[:i] + flip(tok[i]) + tok[i+1:]
		if mangled == tok {
			continue
		}
		if _, err := c.Verify(mangled); !errors.Is(err, ErrInvalidOrExpired) {
			t.Fatalf("Verify(tampered at %d) error = %v, want ErrInvalidOrExpired", i, err)
		}
	}
}

func flip(b byte) string {
	if b == 'A' {
		return "B"
	}
	return "A"
}

func TestWrongSecretRejected(t *testing.T) {
	tok, err := New("secret-one").Issue(testPayload())
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if _, err := New("secret-two").Verify(tok); !errors.Is(err, ErrInvalidOrExpired) {
		t.Errorf("Verify() with wrong secret error = %v, want ErrInvalidOrExpired", err)
	}
}

func TestGarbageRejected(t *testing.T) {
	c := New("secret")
	for _, s := range []string{"", "nope", "a.b.c", strings.Repeat("x", 500)} {
		if _, err := c.Verify(s); !errors.Is(err, ErrInvalidOrExpired) {
			t.Errorf("Verify(%q) error = %v, want ErrInvalidOrExpired", s, err)
		}
	}
}

// A token for a date in the future stays valid until the end of that day.
func TestExpiryEndOfTargetDay(t *testing.T) {
	issued := time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)
	c := codecAt("secret", issued)
	tok, err := c.Issue(testPayload())
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	// still valid just before midnight of the target date
	c.now = func() time.Time { return time.Date(2025, 3, 10, 23, 59, 58, 0, time.Local) }
	if _, err := c.Verify(tok); err != nil {
		t.Errorf("Verify() just before end of day failed: %v", err)
	}

	// expired the next morning
	c.now = func() time.Time { return time.Date(2025, 3, 11, 0, 0, 1, 0, time.Local) }
	if _, err := c.Verify(tok); !errors.Is(err, ErrInvalidOrExpired) {
		t.Errorf("Verify() after end of day error = %v, want ErrInvalidOrExpired", err)
	}
}

// A token for a past date gets the 60 second floor instead of an
// already-elapsed end-of-day expiry.
func TestExpiryFloorForPastDate(t *testing.T) {
	issued := time.Date(2025, 3, 12, 9, 0, 0, 0, time.Local)
	c := codecAt("secret", issued)
	p := testPayload() // dateYMD 2025-03-10, two days earlier
	tok, err := c.Issue(p)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	c.now = func() time.Time { return issued.Add(30 * time.Second) }
	if _, err := c.Verify(tok); err != nil {
		t.Errorf("Verify() within 60s floor failed: %v", err)
	}

	c.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := c.Verify(tok); !errors.Is(err, ErrInvalidOrExpired) {
		t.Errorf("Verify() after 60s floor error = %v, want ErrInvalidOrExpired", err)
	}
}
