package transcript

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediscribe/mediscribe/internal/domain/session"
	"github.com/mediscribe/mediscribe/internal/platform/apperr"
	"github.com/mediscribe/mediscribe/internal/platform/blobstore"
)

// -- Mocks --

type mockRepo struct {
	bySession map[uuid.UUID]*Transcript
}

func newMockRepo() *mockRepo {
	return &mockRepo{bySession: make(map[uuid.UUID]*Transcript)}
}

func (m *mockRepo) Upsert(_ context.Context, t *Transcript) error {
	if existing, ok := m.bySession[t.SessionID]; ok {
		t.ID = existing.ID
		t.CreatedAt = existing.CreatedAt
	} else {
		t.ID = uuid.New()
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = time.Now()
	m.bySession[t.SessionID] = t
	return nil
}

func (m *mockRepo) GetBySessionID(_ context.Context, sessionID uuid.UUID) (*Transcript, error) {
	t, ok := m.bySession[sessionID]
	if !ok {
		return nil, apperr.NotFound("no transcript for session")
	}
	return t, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	for sid, t := range m.bySession {
		if t.ID == id {
			delete(m.bySession, sid)
		}
	}
	return nil
}

type mockSessions struct {
	known map[uuid.UUID]*session.Session
}

func (m *mockSessions) GetByID(_ context.Context, id uuid.UUID) (*session.Session, error) {
	s, ok := m.known[id]
	if !ok {
		return nil, apperr.NotFound("session not found")
	}
	return s, nil
}

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(_ context.Context, audio io.Reader, _ string) (string, error) {
	io.Copy(io.Discard, audio)
	return s.text, s.err
}

func newTestService(text string, terr error) (*Service, *mockRepo, *blobstore.InMemoryAudioStore, uuid.UUID) {
	repo := newMockRepo()
	blobs := blobstore.NewInMemoryAudioStore()
	sessionID := uuid.New()
	sessions := &mockSessions{known: map[uuid.UUID]*session.Session{
		sessionID: {ID: sessionID, PatientID: uuid.New(), DoctorID: uuid.New()},
	}}
	svc := NewService(repo, sessions, blobs, &stubTranscriber{text: text, err: terr}, zerolog.Nop())
	return svc, repo, blobs, sessionID
}

// -- Tests --

func TestProcessUpload(t *testing.T) {
	svc, _, blobs, sessionID := newTestService("patient reports dizziness", nil)

	tr, err := svc.ProcessUpload(context.Background(), sessionID, "visit.wav", "audio/wav", strings.NewReader("pcm"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if tr.RawText != "patient reports dizziness" {
		t.Errorf("raw_text = %q", tr.RawText)
	}
	if tr.SessionID != sessionID {
		t.Error("session_id mismatch")
	}

	// The recording must remain retrievable.
	rc, meta, err := blobs.Download(context.Background(), tr.AudioBlobID)
	if err != nil {
		t.Fatalf("stored recording missing: %v", err)
	}
	rc.Close()
	if meta.SessionID != sessionID.String() {
		t.Errorf("blob session_id = %q", meta.SessionID)
	}
}

func TestProcessUploadUnknownSession(t *testing.T) {
	svc, _, _, _ := newTestService("text", nil)

	_, err := svc.ProcessUpload(context.Background(), uuid.New(), "visit.wav", "audio/wav", strings.NewReader("pcm"))
	if !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestProcessUploadTranscriberFailure(t *testing.T) {
	svc, repo, blobs, sessionID := newTestService("", apperr.Upstream("transcription service unreachable", nil))

	_, err := svc.ProcessUpload(context.Background(), sessionID, "visit.wav", "audio/wav", strings.NewReader("pcm"))
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(repo.bySession) != 0 {
		t.Error("no transcript row should be written on failure")
	}
	// The orphaned recording is cleaned up.
	if _, err := blobs.GetMetadata(context.Background(), "any"); err == nil {
		t.Error("expected empty blob store")
	}
}

func TestProcessUploadReplacesTranscript(t *testing.T) {
	svc, repo, _, sessionID := newTestService("first pass", nil)
	ctx := context.Background()

	first, err := svc.ProcessUpload(ctx, sessionID, "a.wav", "audio/wav", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("first upload failed: %v", err)
	}

	second, err := svc.ProcessUpload(ctx, sessionID, "b.wav", "audio/wav", strings.NewReader("y"))
	if err != nil {
		t.Fatalf("second upload failed: %v", err)
	}
	if second.ID != first.ID {
		t.Error("re-upload should keep the transcript row identity")
	}
	if len(repo.bySession) != 1 {
		t.Errorf("expected exactly one transcript, got %d", len(repo.bySession))
	}
	if repo.bySession[sessionID].FileName != "b.wav" {
		t.Errorf("file_name = %q, want b.wav", repo.bySession[sessionID].FileName)
	}
}

func TestProcessUploadReleasesReplacedRecording(t *testing.T) {
	svc, _, blobs, sessionID := newTestService("first pass", nil)
	ctx := context.Background()

	first, err := svc.ProcessUpload(ctx, sessionID, "a.wav", "audio/wav", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("first upload failed: %v", err)
	}

	second, err := svc.ProcessUpload(ctx, sessionID, "b.wav", "audio/wav", strings.NewReader("y"))
	if err != nil {
		t.Fatalf("second upload failed: %v", err)
	}

	if _, err := blobs.GetMetadata(ctx, first.AudioBlobID); err == nil {
		t.Error("replaced recording should be deleted from the store")
	}
	if _, err := blobs.GetMetadata(ctx, second.AudioBlobID); err != nil {
		t.Errorf("current recording missing: %v", err)
	}
}

func TestGetBySession(t *testing.T) {
	svc, _, _, sessionID := newTestService("the text", nil)
	ctx := context.Background()

	// No transcript yet.
	if _, err := svc.GetBySession(ctx, sessionID); !apperr.IsNotFound(err) {
		t.Errorf("expected not found before upload, got %v", err)
	}

	if _, err := svc.ProcessUpload(ctx, sessionID, "v.wav", "audio/wav", strings.NewReader("x")); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	tr, err := svc.GetBySession(ctx, sessionID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if tr.RawText != "the text" {
		t.Errorf("raw_text = %q", tr.RawText)
	}
}

func TestProcessUploadMissingFileName(t *testing.T) {
	svc, _, _, sessionID := newTestService("text", nil)

	_, err := svc.ProcessUpload(context.Background(), sessionID, "  ", "audio/wav", strings.NewReader("x"))
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}
