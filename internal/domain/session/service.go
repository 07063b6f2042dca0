package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mediscribe/mediscribe/internal/platform/apperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Valid session statuses.
var validStatuses = map[string]bool{
	"scheduled":   true,
	"in_progress": true,
	"completed":   true,
	"cancelled":   true,
}

func (s *Service) CreateSession(ctx context.Context, sess *Session) error {
	if sess.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if sess.DoctorID == uuid.Nil {
		return apperr.Validation("doctor_id is required")
	}
	if sess.Status == "" {
		sess.Status = "scheduled"
	}
	if !validStatuses[sess.Status] {
		return apperr.Validation("invalid status: %s", sess.Status)
	}
	if sess.ScheduledAt.IsZero() {
		sess.ScheduledAt = time.Now().UTC()
	}
	return s.repo.Create(ctx, sess)
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateSession(ctx context.Context, sess *Session) error {
	if sess.Status != "" && !validStatuses[sess.Status] {
		return apperr.Validation("invalid status: %s", sess.Status)
	}

	existing, err := s.repo.GetByID(ctx, sess.ID)
	if err != nil {
		return err
	}
	// Participants are fixed at creation.
	sess.PatientID = existing.PatientID
	sess.DoctorID = existing.DoctorID
	if sess.Status == "" {
		sess.Status = existing.Status
	}
	if sess.ScheduledAt.IsZero() {
		sess.ScheduledAt = existing.ScheduledAt
	}
	return s.repo.Update(ctx, sess)
}

func (s *Service) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListSessions(ctx context.Context, limit, offset int) ([]*Session, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListSessionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListSessionsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}
