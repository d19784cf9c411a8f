package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsIssued counts minted session tokens.
	SessionsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_sessions_issued_total",
		Help: "Number of attendance sessions opened by admins.",
	})

	// Marks counts mark attempts by outcome: ok, invalid_token, wrong_batch,
	// weekend, duplicate, error.
	Marks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_attendance_marks_total",
		Help: "Attendance mark attempts by outcome.",
	}, []string{"result"})
)
