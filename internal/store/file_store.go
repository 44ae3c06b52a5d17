package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/molunlade/contact-api/internal/models"
)

// FileStore keeps submissions in a single JSON collection on disk. All mutation is
// serialized through one writer goroutine, so concurrent requests never race on the
// read-modify-write-replace cycle. Every successful mutation is durable before the
// call returns: the collection is written to a staging file in the same directory,
// fsynced, then swapped into place with an atomic rename. A crash mid-write leaves
// the previous collection intact.
type FileStore struct {
	path   string
	logger zerolog.Logger

	ops       chan func()
	quit      chan struct{}
	closeOnce sync.Once

	// owned by the writer goroutine after Start
	records []models.Submission
	index   map[string]int
}

// NewFileStore loads the collection at path (creating it when absent) and starts
// the writer goroutine.
func NewFileStore(path string, logger zerolog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path must not be empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FileStore{
		path:   path,
		logger: logger.With().Str("component", "file_store").Logger(),
		ops:    make(chan func()),
		quit:   make(chan struct{}),
		index:  make(map[string]int),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	go s.run()

	return s, nil
}

// Close stops the writer goroutine. Pending operations submitted before Close
// complete first. Close is safe to call more than once.
func (s *FileStore) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
}

func (s *FileStore) run() {
	for {
		select {
		case op := <-s.ops:
			op()
		case <-s.quit:
			return
		}
	}
}

// submit runs op on the writer goroutine and waits for it to finish.
func (s *FileStore) submit(ctx context.Context, op func()) error {
	done := make(chan struct{})
	wrapped := func() {
		op()
		close(done)
	}

	select {
	case s.ops <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quit:
		return fmt.Errorf("file store is closed")
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// The op still runs; the caller just stops waiting.
		return ctx.Err()
	}
}

// GetOrCreate implements SubmissionStore.
func (s *FileStore) GetOrCreate(ctx context.Context, sub models.Submission) (models.Submission, bool, error) {
	var (
		result  models.Submission
		created bool
		opErr   error
	)

	err := s.submit(ctx, func() {
		if i, ok := s.index[sub.RequestID]; ok {
			result = s.records[i]
			return
		}

		now := time.Now().UTC()
		sub.ID = uint(len(s.records) + 1)
		sub.Status = models.StatusPending
		sub.CreatedAt = now
		sub.UpdatedAt = now

		s.records = append(s.records, sub)
		s.index[sub.RequestID] = len(s.records) - 1

		if err := s.flush(); err != nil {
			// Roll back so a failed write never leaves a phantom record.
			s.records = s.records[:len(s.records)-1]
			delete(s.index, sub.RequestID)
			opErr = err
			return
		}

		result = sub
		created = true
	})
	if err != nil {
		return models.Submission{}, false, err
	}
	if opErr != nil {
		return models.Submission{}, false, opErr
	}

	return result, created, nil
}

// UpdateStatus implements SubmissionStore.
func (s *FileStore) UpdateStatus(ctx context.Context, requestID string, patch StatusPatch) error {
	var opErr error

	err := s.submit(ctx, func() {
		i, ok := s.index[requestID]
		if !ok {
			s.logger.Warn().Str("request_id", requestID).Msg("status update for unknown submission ignored")
			return
		}

		record := s.records[i]
		previous := record

		if patch.Status != "" && record.Status == models.StatusPending {
			record.Status = patch.Status
		}
		if patch.SendGridID != "" {
			record.SendGridID = patch.SendGridID
		}
		if patch.Error != "" {
			record.Error = patch.Error
		}
		record.UpdatedAt = time.Now().UTC()

		s.records[i] = record
		if err := s.flush(); err != nil {
			s.records[i] = previous
			opErr = err
		}
	})
	if err != nil {
		return err
	}

	return opErr
}

// List implements SubmissionStore.
func (s *FileStore) List(ctx context.Context) ([]models.Submission, error) {
	var out []models.Submission

	err := s.submit(ctx, func() {
		out = make([]models.Submission, len(s.records))
		copy(out, s.records)
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s.flush()
		}
		return fmt.Errorf("failed to read submissions file: %w", err)
	}

	if len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, &s.records); err != nil {
		return fmt.Errorf("failed to parse submissions file: %w", err)
	}

	for i, record := range s.records {
		s.index[record.RequestID] = i
	}

	return nil
}

// flush writes the collection to a staging file and atomically swaps it into
// place. The staging file lives in the same directory so the rename never crosses
// a filesystem boundary.
func (s *FileStore) flush() error {
	raw, err := json.MarshalIndent(s.recordsOrEmpty(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode submissions: %w", err)
	}

	staging := s.path + ".tmp"
	f, err := os.OpenFile(staging, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open staging file: %w", err)
	}

	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(staging)
		return fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(staging)
		return fmt.Errorf("failed to sync staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(staging)
		return fmt.Errorf("failed to close staging file: %w", err)
	}

	if err := os.Rename(staging, s.path); err != nil {
		os.Remove(staging)
		return fmt.Errorf("failed to replace submissions file: %w", err)
	}

	return nil
}

func (s *FileStore) recordsOrEmpty() []models.Submission {
	if s.records == nil {
		return []models.Submission{}
	}
	return s.records
}
