// Package export stages marked attendance into per-day, per-batch CSV files
// and turns them into spreadsheets for download. The database row is the
// durable record; staging exists so exports never scan the attendance table.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"classtrack/internal/attendance"
)

// ErrNoStaging means no attendance was staged for that date and batch.
var ErrNoStaging = errors.New("no attendance file")

const csvHeader = "timestamp,batchId,sessionId,studentRegNo,studentName,subject,start,end,location\n"

// Staging appends attendance rows under dir/<dateYMD>/<batchID>.csv.
type Staging struct {
	dir string
}

// NewStaging creates the staging root if needed.
func NewStaging(dir string) (*Staging, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Staging{dir: dir}, nil
}

// Path returns where records for (dateYMD, batchID) are staged.
func (s *Staging) Path(dateYMD, batchID string) string {
	return filepath.Join(s.dir, dateYMD, batchID+".csv")
}

// Append writes one record, creating the file with a header row first.
// Field values have commas squashed to spaces so lines stay 9 columns.
func (s *Staging) Append(rec attendance.Record) error {
	dir := filepath.Join(s.dir, rec.DateYMD)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := s.Path(rec.DateYMD, rec.BatchID)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.Size() == 0 {
		if _, err := f.WriteString(csvHeader); err != nil {
			return err
		}
	}

	ts := rec.TS
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	line := strings.Join([]string{
		ts.UTC().Format(time.RFC3339),
		rec.BatchID,
		rec.SessionID,
		decomma(rec.RegNo),
		decomma(rec.Name),
		decomma(rec.Subject),
		rec.Start,
		rec.End,
		decomma(rec.Location),
	}, ",")
	_, err = fmt.Fprintln(f, line)
	return err
}

func decomma(s string) string {
	return strings.ReplaceAll(s, ",", " ")
}
