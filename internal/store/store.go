// Package store implements the idempotent submission store. A client-supplied
// request id maps to at most one submission record; re-submission with the same id
// observes the original record instead of creating a second one.
package store

import (
	"context"

	"github.com/molunlade/contact-api/internal/models"
)

// StatusPatch carries the delivery outcome merged into an existing record.
// Empty fields are left untouched.
type StatusPatch struct {
	Status     string
	SendGridID string
	Error      string
}

// SubmissionStore is the idempotency store contract. Implementations must make
// creation atomic per request id: two concurrent GetOrCreate calls with the same id
// yield exactly one record, and the second caller observes the first's result.
type SubmissionStore interface {
	// GetOrCreate returns the record for the submission's request id, creating a
	// pending record when none exists. The boolean reports whether a record was
	// created by this call.
	GetOrCreate(ctx context.Context, sub models.Submission) (models.Submission, bool, error)

	// UpdateStatus merges the patch into an existing record and bumps updated_at.
	// A missing record is a logged no-op. Status never moves backwards: a record
	// already sent keeps its status.
	UpdateStatus(ctx context.Context, requestID string, patch StatusPatch) error

	// List returns all stored submissions in creation order.
	List(ctx context.Context) ([]models.Submission, error)
}
