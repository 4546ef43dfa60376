package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts password login attempts by outcome
	// (success or failure).
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollbook_login_attempts_total",
		Help: "Password login attempts by outcome.",
	}, []string{"outcome"})

	// AttendanceMarks counts attendance upserts by status.
	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollbook_attendance_marks_total",
		Help: "Attendance status writes by status.",
	}, []string{"status"})
)
