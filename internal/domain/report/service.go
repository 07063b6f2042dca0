package report

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediscribe/mediscribe/internal/domain/transcript"
	"github.com/mediscribe/mediscribe/internal/platform/apperr"
	"github.com/mediscribe/mediscribe/internal/platform/extract"
)

// transcriptStore is the slice of the transcript repository this service needs.
type transcriptStore interface {
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*transcript.Transcript, error)
}

type Service struct {
	repo        Repository
	transcripts transcriptStore
	extractor   extract.Extractor
	logger      zerolog.Logger
}

func NewService(repo Repository, transcripts transcriptStore, extractor extract.Extractor, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		transcripts: transcripts,
		extractor:   extractor,
		logger:      logger.With().Str("component", "report").Logger(),
	}
}

// GenerateForSession runs extraction over the session's transcript and stores
// the result. A session without a transcript cannot be reported on, and a
// session that already has a report keeps it; delete the report first to
// regenerate.
func (s *Service) GenerateForSession(ctx context.Context, sessionID uuid.UUID) (*Report, error) {
	t, err := s.transcripts.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetBySessionID(ctx, sessionID); err == nil {
		return nil, apperr.Conflict("session already has a report")
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	result, err := s.extractor.Extract(ctx, t.RawText)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		SessionID:    sessionID,
		Summary:      result.Summary,
		Symptoms:     result.Symptoms,
		Medications:  result.Medications,
		Followups:    result.Followups,
		Restrictions: result.Restrictions,
	}
	if err := s.repo.Create(ctx, rep); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("session_id", sessionID.String()).
		Int("symptoms", len(rep.Symptoms)).
		Int("medications", len(rep.Medications)).
		Msg("report generated")

	return rep, nil
}

// CreateReport stores a hand-written report for a session, bypassing
// extraction. The one-report-per-session rule still applies.
func (s *Service) CreateReport(ctx context.Context, rep *Report) error {
	if rep.SessionID == uuid.Nil {
		return apperr.Validation("session_id is required")
	}
	if rep.Summary == "" {
		return apperr.Validation("summary is required")
	}
	return s.repo.Create(ctx, rep)
}

func (s *Service) GetBySession(ctx context.Context, sessionID uuid.UUID) (*Report, error) {
	return s.repo.GetBySessionID(ctx, sessionID)
}

func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateReport lets a doctor correct the extracted note.
func (s *Service) UpdateReport(ctx context.Context, rep *Report) error {
	existing, err := s.repo.GetByID(ctx, rep.ID)
	if err != nil {
		return err
	}
	rep.SessionID = existing.SessionID
	if rep.Summary == "" {
		return apperr.Validation("summary is required")
	}
	return s.repo.Update(ctx, rep)
}

func (s *Service) DeleteReport(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListReports(ctx context.Context, limit, offset int) ([]*Report, int, error) {
	return s.repo.List(ctx, limit, offset)
}
