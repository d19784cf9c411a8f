// Package sessiontoken implements the signed credential that opens one class
// occurrence for attendance. Tokens are self-contained: verification needs
// only the shared secret and a clock, never a server-side session store.
package sessiontoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"classtrack/internal/calendar"
)

// ErrInvalidOrExpired covers every verification failure: bad signature,
// malformed token, or elapsed expiry. Callers get no finer distinction.
var ErrInvalidOrExpired = errors.New("invalid or expired session token")

// Slot is the schedule snapshot embedded at issuance time. Marking records
// carry these values as issued, not a live schedule lookup.
type Slot struct {
	Subject  string `json:"subject"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Location string `json:"location"`
}

// Payload identifies one open class session.
type Payload struct {
	SessionID string `json:"sessionId"`
	BatchID   string `json:"batchId"`
	DateYMD   string `json:"dateYMD"`
	Slot      Slot   `json:"slot"`
}

type claims struct {
	Payload
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with a process-wide secret.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// New creates a codec. The secret is read-only after construction and safe
// for concurrent use.
func New(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// Issue signs the payload. The token expires at 23:59:59 local time on the
// target date, or 60 seconds from now if that is later, so a token minted
// late in the day (or for a past date) still survives long enough to scan.
func (c *Codec) Issue(p Payload) (string, error) {
	now := c.now()
	exp := now.Add(60 * time.Second)
	if day, err := calendar.ParseYMD(p.DateYMD); err == nil {
		if end := calendar.EndOfDay(day); end.After(exp) {
			exp = end
		}
	}
	cl := claims{
		Payload: p,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
}

// Verify checks signature and expiry and returns the embedded payload.
func (c *Codec) Verify(tokenStr string) (Payload, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		return Payload{}, ErrInvalidOrExpired
	}
	cl, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return Payload{}, ErrInvalidOrExpired
	}
	return cl.Payload, nil
}
