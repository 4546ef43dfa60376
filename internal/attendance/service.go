package attendance

import (
	"context"
	"errors"
	"time"
)

// Status is a recognized attendance state for one student on one day.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

var (
	// ErrInvalidStatus rejects any status outside the recognized set.
	ErrInvalidStatus = errors.New("status must be one of: present, absent, late")
	// ErrInvalidDate rejects dates not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")
)

// ParseStatus validates a raw status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPresent, StatusAbsent, StatusLate:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// Service validates and records attendance marks.
type Service struct {
	repo Repository
}

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Status returns the stored status for (studentID, date). A pair that was
// never written reads as absent.
func (s *Service) Status(ctx context.Context, studentID int, date string) (Status, error) {
	if err := validDate(date); err != nil {
		return "", err
	}
	return s.repo.GetStatus(ctx, studentID, date)
}

// Mark upserts the status for (studentID, date). Validation happens before
// the store is touched, so a rejected mark never mutates state.
func (s *Service) Mark(ctx context.Context, studentID int, date, status string) (Status, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return "", err
	}
	if err := validDate(date); err != nil {
		return "", err
	}
	return st, s.repo.SetStatus(ctx, studentID, date, st)
}

// MarkResult reports the outcome of one student's mark in a bulk call.
type MarkResult struct {
	StudentID int    `json:"studentId"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

// MarkAll applies independent per-student upserts. A failed write does not
// stop the rest and is not rolled back; the caller gets one result per
// student and can retry the failed ones.
func (s *Service) MarkAll(ctx context.Context, date, status string, studentIDs []int) ([]MarkResult, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if err := validDate(date); err != nil {
		return nil, err
	}
	results := make([]MarkResult, 0, len(studentIDs))
	for _, id := range studentIDs {
		res := MarkResult{StudentID: id, OK: true}
		if err := s.repo.SetStatus(ctx, id, date, st); err != nil {
			res.OK = false
			res.Error = "write failed"
		}
		results = append(results, res)
	}
	return results, nil
}

func validDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return ErrInvalidDate
	}
	return nil
}
