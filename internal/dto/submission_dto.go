package dto

import "github.com/molunlade/contact-api/internal/models"

// SubmissionRequest defines the expected payload for the contact form endpoint.
// RequestID is optional; the service generates one when absent.
type SubmissionRequest struct {
	RequestID string `json:"request_id" validate:"omitempty,max=200"`
	Name      string `json:"name" validate:"required,min=1,max=200"`
	Email     string `json:"email" validate:"required,contact_email,max=320"`
	Subject   string `json:"subject" validate:"required,min=1,max=200"`
	Message   string `json:"message" validate:"required,min=1,max=2000"`
	Honeypot  string `json:"_note"`
}

// RequestMeta carries best-effort provenance captured from the HTTP layer.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// FieldError describes a single validation failure in a client-visible form.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SubmissionResult reports the stored record plus how (and whether) the
// notification side of the delivery chain succeeded.
type SubmissionResult struct {
	Submission models.Submission
	Email      string // sent | skipped | failed
	Method     string // database | sendgrid | smtp | tmp | cached
	Note       string // set when the ephemeral fallback was used
}
