package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/molunlade/contact-api/internal/models"
)

// TempFileChannel appends submissions to a JSON collection under the OS temp
// directory. It exists so a request does not fail outright when every real
// channel is down; the data is ephemeral and the chain surfaces that as a
// warning, never as a durable success.
type TempFileChannel struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewTempFileChannel constructs the fallback. An empty path defaults to
// submissions.json in the OS temp directory.
func NewTempFileChannel(path string, logger zerolog.Logger) *TempFileChannel {
	if path == "" {
		path = filepath.Join(os.TempDir(), "submissions.json")
	}

	return &TempFileChannel{
		path:   path,
		logger: logger.With().Str("component", "tmp_fallback").Logger(),
	}
}

// Name implements Notifier.
func (t *TempFileChannel) Name() string { return MethodTmp }

// Configured implements Notifier. The fallback is always available.
func (t *TempFileChannel) Configured() bool { return true }

// Send implements Notifier.
func (t *TempFileChannel) Send(ctx context.Context, sub models.Submission) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var existing []models.Submission
	if raw, err := os.ReadFile(t.path); err == nil && len(raw) > 0 {
		// A corrupt fallback file is discarded rather than blocking intake.
		_ = json.Unmarshal(raw, &existing)
	}

	existing = append(existing, sub)

	raw, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode fallback collection: %w", err)
	}

	if err := os.WriteFile(t.path, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to write fallback file: %w", err)
	}

	t.logger.Warn().Str("path", t.path).Str("request_id", sub.RequestID).Msg("submission stored to ephemeral fallback")

	return "", nil
}
