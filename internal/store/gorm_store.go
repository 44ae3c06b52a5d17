package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/molunlade/contact-api/internal/models"
)

// GormStore implements SubmissionStore on a relational table. The unique index on
// request_id provides the atomic-creation guarantee; a lost insert race falls back
// to reading the winner's record.
type GormStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewGormStore constructs a store backed by GORM.
func NewGormStore(db *gorm.DB, logger zerolog.Logger) *GormStore {
	return &GormStore{
		db:     db,
		logger: logger.With().Str("component", "gorm_store").Logger(),
	}
}

// GetOrCreate implements SubmissionStore.
func (s *GormStore) GetOrCreate(ctx context.Context, sub models.Submission) (models.Submission, bool, error) {
	var existing models.Submission
	err := s.db.WithContext(ctx).Where("request_id = ?", sub.RequestID).First(&existing).Error
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Submission{}, false, err
	}

	sub.ID = 0
	sub.Status = models.StatusPending
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		// Unique-index violation means another writer created the record first;
		// that caller's result is authoritative.
		if ferr := s.db.WithContext(ctx).Where("request_id = ?", sub.RequestID).First(&existing).Error; ferr == nil {
			return existing, false, nil
		}
		return models.Submission{}, false, err
	}

	return sub, true, nil
}

// UpdateStatus implements SubmissionStore.
func (s *GormStore) UpdateStatus(ctx context.Context, requestID string, patch StatusPatch) error {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if patch.SendGridID != "" {
		updates["sendgrid_id"] = patch.SendGridID
	}
	if patch.Error != "" {
		updates["error"] = patch.Error
	}

	query := s.db.WithContext(ctx).Model(&models.Submission{}).Where("request_id = ?", requestID)
	if patch.Status != "" {
		// Forward-only: never demote a record that already left pending.
		query = query.Where("status = ?", models.StatusPending)
		updates["status"] = patch.Status
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		s.logger.Warn().Str("request_id", requestID).Msg("status update matched no pending submission")
	}

	return nil
}

// List implements SubmissionStore.
func (s *GormStore) List(ctx context.Context) ([]models.Submission, error) {
	var submissions []models.Submission
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&submissions).Error
	return submissions, err
}
