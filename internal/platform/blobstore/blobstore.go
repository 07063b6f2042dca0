// Package blobstore stores uploaded consultation audio. It defines the
// AudioStore interface, an in-memory implementation suitable for testing and
// development, and an Echo handler for serving stored recordings back.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var (
	ErrBlobNotFound = errors.New("audio blob not found")
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
)

// MaxFileSize is the maximum allowed recording size in bytes (100 MB).
const MaxFileSize = 100 * 1024 * 1024

// AudioMetadata describes a stored recording.
type AudioMetadata struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// AudioStore defines the contract for audio storage backends.
type AudioStore interface {
	Upload(ctx context.Context, meta AudioMetadata, content io.Reader) (*AudioMetadata, error)
	Download(ctx context.Context, id string) (io.ReadCloser, *AudioMetadata, error)
	Delete(ctx context.Context, id string) error
	GetMetadata(ctx context.Context, id string) (*AudioMetadata, error)
}

type storedBlob struct {
	metadata AudioMetadata
	content  []byte
}

// InMemoryAudioStore is a thread-safe, in-memory AudioStore for testing/dev.
type InMemoryAudioStore struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
}

// NewInMemoryAudioStore returns a ready-to-use InMemoryAudioStore.
func NewInMemoryAudioStore() *InMemoryAudioStore {
	return &InMemoryAudioStore{
		blobs: make(map[string]*storedBlob),
	}
}

// Upload reads the content, computes a SHA-256 hash, and stores the blob in
// memory. No format validation happens here; the transcription backend is the
// authority on what it can decode.
func (s *InMemoryAudioStore) Upload(_ context.Context, meta AudioMetadata, content io.Reader) (*AudioMetadata, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	h := sha256.Sum256(data)

	meta.ID = uuid.New().String()
	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", h)
	meta.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.blobs[meta.ID] = &storedBlob{
		metadata: meta,
		content:  data,
	}
	s.mu.Unlock()

	out := meta // copy
	return &out, nil
}

// Download returns an io.ReadCloser over the blob content and its metadata.
func (s *InMemoryAudioStore) Download(_ context.Context, id string) (io.ReadCloser, *AudioMetadata, error) {
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrBlobNotFound
	}

	meta := blob.metadata // copy
	return io.NopCloser(bytes.NewReader(blob.content)), &meta, nil
}

// Delete removes a blob by ID.
func (s *InMemoryAudioStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[id]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, id)
	return nil
}

// GetMetadata returns blob metadata without content.
func (s *InMemoryAudioStore) GetMetadata(_ context.Context, id string) (*AudioMetadata, error) {
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrBlobNotFound
	}

	meta := blob.metadata // copy
	return &meta, nil
}

// Handler serves stored recordings.
type Handler struct {
	store AudioStore
}

func NewHandler(store AudioStore) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/audio/:id", h.GetAudio)
}

func (h *Handler) GetAudio(c echo.Context) error {
	id := c.Param("id")
	content, meta, err := h.store.Download(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "audio not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer content.Close()

	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.Stream(http.StatusOK, contentType, content)
}
