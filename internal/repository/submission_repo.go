package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/molunlade/contact-api/internal/models"
)

// SubmissionRepository persists contact submissions in the hosted database. It is
// the durable half of the delivery chain; notification channels never write here.
type SubmissionRepository interface {
	// InsertOrFetch inserts the submission, or returns the existing record when
	// one already holds the same request id.
	InsertOrFetch(ctx context.Context, sub models.Submission) (models.Submission, error)
	List(ctx context.Context) ([]models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository constructs a repository backed by GORM.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) InsertOrFetch(ctx context.Context, sub models.Submission) (models.Submission, error) {
	var existing models.Submission
	err := r.db.WithContext(ctx).Where("request_id = ?", sub.RequestID).First(&existing).Error
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Submission{}, err
	}

	sub.ID = 0
	if err := r.db.WithContext(ctx).Create(&sub).Error; err != nil {
		// Unique index on request_id: a concurrent insert won; fetch its record.
		if ferr := r.db.WithContext(ctx).Where("request_id = ?", sub.RequestID).First(&existing).Error; ferr == nil {
			return existing, nil
		}
		return models.Submission{}, err
	}

	return sub, nil
}

func (r *submissionRepository) List(ctx context.Context) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&submissions).Error
	return submissions, err
}
