package transcript

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediscribe/mediscribe/internal/domain/session"
	"github.com/mediscribe/mediscribe/internal/platform/apperr"
	"github.com/mediscribe/mediscribe/internal/platform/blobstore"
	"github.com/mediscribe/mediscribe/internal/platform/transcribe"
)

// sessionStore is the slice of the session repository this service needs.
type sessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*session.Session, error)
}

type Service struct {
	repo        Repository
	sessions    sessionStore
	blobs       blobstore.AudioStore
	transcriber transcribe.Transcriber
	logger      zerolog.Logger
}

func NewService(repo Repository, sessions sessionStore, blobs blobstore.AudioStore, transcriber transcribe.Transcriber, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		sessions:    sessions,
		blobs:       blobs,
		transcriber: transcriber,
		logger:      logger.With().Str("component", "transcript").Logger(),
	}
}

// ProcessUpload stores the recording, transcribes it, and saves the result as
// the session's transcript. Uploading a second recording for the same session
// replaces the previous transcript.
func (s *Service) ProcessUpload(ctx context.Context, sessionID uuid.UUID, fileName, contentType string, content io.Reader) (*Transcript, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, apperr.Validation("file name is required")
	}

	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}

	// Remember the recording being replaced so it can be released once the
	// new transcript is saved.
	var oldBlobID string
	if prev, err := s.repo.GetBySessionID(ctx, sessionID); err == nil {
		oldBlobID = prev.AudioBlobID
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	meta, err := s.blobs.Upload(ctx, blobstore.AudioMetadata{
		SessionID:   sessionID.String(),
		FileName:    fileName,
		ContentType: contentType,
	}, content)
	if err != nil {
		if errors.Is(err, blobstore.ErrFileTooLarge) {
			return nil, apperr.Validation("recording exceeds the maximum allowed size")
		}
		return nil, err
	}

	audio, _, err := s.blobs.Download(ctx, meta.ID)
	if err != nil {
		return nil, err
	}
	defer audio.Close()

	text, err := s.transcriber.Transcribe(ctx, audio, fileName)
	if err != nil {
		// Keep nothing on failure; the caller may retry the upload.
		if delErr := s.blobs.Delete(ctx, meta.ID); delErr != nil {
			s.logger.Warn().Err(delErr).Str("blob_id", meta.ID).Msg("orphaned recording after failed transcription")
		}
		return nil, err
	}

	t := &Transcript{
		SessionID:   sessionID,
		AudioBlobID: meta.ID,
		FileName:    fileName,
		RawText:     text,
	}
	if err := s.repo.Upsert(ctx, t); err != nil {
		return nil, err
	}

	if oldBlobID != "" && oldBlobID != meta.ID {
		if delErr := s.blobs.Delete(ctx, oldBlobID); delErr != nil {
			s.logger.Warn().Err(delErr).Str("blob_id", oldBlobID).Msg("superseded recording not released")
		}
	}

	s.logger.Info().
		Str("session_id", sessionID.String()).
		Str("file", fileName).
		Int("chars", len(text)).
		Msg("transcript saved")

	return t, nil
}

// GetBySession returns the session's transcript, checking the session first
// so an unknown session and a session without a transcript report distinctly.
func (s *Service) GetBySession(ctx context.Context, sessionID uuid.UUID) (*Transcript, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.GetBySessionID(ctx, sessionID)
}
