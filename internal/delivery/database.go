package delivery

import (
	"context"

	"github.com/molunlade/contact-api/internal/models"
	"github.com/molunlade/contact-api/internal/repository"
)

// DatabaseStorage adapts the submission repository to the chain's Storage
// contract. Insert-or-fetch keyed on request id keeps the channel idempotent.
type DatabaseStorage struct {
	repo repository.SubmissionRepository
}

// NewDatabaseStorage wraps the repository for use as delivery channel 1.
func NewDatabaseStorage(repo repository.SubmissionRepository) *DatabaseStorage {
	return &DatabaseStorage{repo: repo}
}

// Persist implements Storage.
func (d *DatabaseStorage) Persist(ctx context.Context, sub models.Submission) (models.Submission, error) {
	return d.repo.InsertOrFetch(ctx, sub)
}
