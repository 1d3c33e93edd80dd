package memory

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
)

type attachmentKey struct {
	recordType string
	recordID   int64
	name       string
}

type AttachmentRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   map[attachmentKey]entity.Attachment
}

func NewAttachmentRepository() *AttachmentRepository {
	return &AttachmentRepository{rows: make(map[attachmentKey]entity.Attachment)}
}

func (r *AttachmentRepository) Attach(_ context.Context, a *entity.Attachment) (*entity.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := attachmentKey{a.RecordType, a.RecordID, a.Name}
	var previous *entity.Attachment
	if old, ok := r.rows[key]; ok {
		previous = &old
	}
	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now()
	r.rows[key] = *a
	return previous, nil
}

func (r *AttachmentRepository) Get(_ context.Context, recordType string, recordID int64, name string) (*entity.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[attachmentKey{recordType, recordID, name}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *AttachmentRepository) Detach(_ context.Context, recordType string, recordID int64, name string) (*entity.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := attachmentKey{recordType, recordID, name}
	a, ok := r.rows[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.rows, key)
	return &a, nil
}

var _ repository.AttachmentRepository = (*AttachmentRepository)(nil)

// BlobStore keeps uploaded bytes in memory.
type BlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

func (s *BlobStore) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = buf.Bytes()
	return "memory://" + key, nil
}

func (s *BlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// Has reports whether key is stored.
func (s *BlobStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok
}
