package attachments

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/objectstore"
)

type issuedGrant struct {
	Path string
	TTL  time.Duration
	Opts objectstore.AccessOptions
}

// recordingStore remembers every call and fails the first failPuts uploads.
type recordingStore struct {
	mu       sync.Mutex
	puts     []string
	deletes  []string
	grants   []issuedGrant
	failPuts int
	grantErr error
}

func (s *recordingStore) Put(ctx context.Context, objectPath string, body io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.ReadAll(body); err != nil {
		return err
	}
	if s.failPuts > 0 {
		s.failPuts--
		return errors.New("connection reset by peer")
	}
	s.puts = append(s.puts, objectPath)
	return nil
}

func (s *recordingStore) Delete(ctx context.Context, objectPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, objectPath)
	return nil
}

func (s *recordingStore) IssueTemporaryAccess(ctx context.Context, objectPath string, ttl time.Duration, opts objectstore.AccessOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grantErr != nil {
		return "", s.grantErr
	}
	s.grants = append(s.grants, issuedGrant{Path: objectPath, TTL: ttl, Opts: opts})
	return "https://objects.example.test/" + objectPath + "?sig=abc", nil
}

func (s *recordingStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.puts) + len(s.deletes) + len(s.grants)
}

type fakeLookup struct {
	rows map[uuid.UUID]*AttachmentAndMessage
	err  error
}

func (l fakeLookup) FetchAttachmentAndMessage(ctx context.Context, attachmentID uuid.UUID) (*AttachmentAndMessage, error) {
	if l.err != nil {
		return nil, l.err
	}
	row, ok := l.rows[attachmentID]
	if !ok {
		return nil, db.NotFound
	}
	return row, nil
}
