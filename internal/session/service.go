// Package session mints attendance-taking windows. Issuance writes nothing:
// the signed token is the only artifact of an opened session until the first
// student marks against it.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"classtrack/internal/calendar"
	"classtrack/internal/schedule"
	"classtrack/internal/sessiontoken"
)

// ErrSlotNotFound is returned when the slot does not exist or belongs to a
// different batch.
var ErrSlotNotFound = errors.New("slot not found")

const qrSize = 360

// SlotFinder resolves a slot scoped to its batch.
type SlotFinder interface {
	Slot(ctx context.Context, slotID, batchID string) (*schedule.Slot, error)
}

// Session describes one opened class occurrence.
type Session struct {
	SessionID string        `json:"sessionId"`
	DateYMD   string        `json:"dateYMD"`
	BatchID   string        `json:"batchId"`
	Slot      schedule.Slot `json:"slot"`
}

// Issued is the result handed to the admin screen.
type Issued struct {
	URL       string  `json:"url"`
	QRDataURL string  `json:"qrDataUrl"`
	Session   Session `json:"session"`
}

// Service issues session tokens and renders them scannable.
type Service struct {
	slots     SlotFinder
	codec     *sessiontoken.Codec
	clientURL string
}

// NewService creates an issuance service. clientURL is the base of the
// student-facing scan page.
func NewService(slots SlotFinder, codec *sessiontoken.Codec, clientURL string) *Service {
	return &Service{slots: slots, codec: codec, clientURL: clientURL}
}

// Issue opens slotID of batchID for attendance on dateYMD. The slot snapshot
// is frozen into the token, so later schedule edits do not affect records
// marked against this session.
func (s *Service) Issue(ctx context.Context, batchID, dateYMD, slotID string) (Issued, error) {
	if _, err := calendar.ParseYMD(dateYMD); err != nil {
		return Issued{}, err
	}
	slot, err := s.slots.Slot(ctx, slotID, batchID)
	if err != nil {
		return Issued{}, err
	}
	if slot == nil {
		return Issued{}, ErrSlotNotFound
	}

	sessionID := uuid.NewString()
	token, err := s.codec.Issue(sessiontoken.Payload{
		SessionID: sessionID,
		BatchID:   batchID,
		DateYMD:   dateYMD,
		Slot: sessiontoken.Slot{
			Subject:  slot.Subject,
			Start:    slot.Start,
			End:      slot.End,
			Location: slot.Location,
		},
	})
	if err != nil {
		return Issued{}, err
	}

	scanURL := fmt.Sprintf("%s/scan?token=%s", s.clientURL, url.QueryEscape(token))
	png, err := qrcode.Encode(scanURL, qrcode.Medium, qrSize)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		URL:       scanURL,
		QRDataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		Session: Session{
			SessionID: sessionID,
			DateYMD:   dateYMD,
			BatchID:   batchID,
			Slot:      *slot,
		},
	}, nil
}
