package models

import "time"

// Submission statuses. Status only moves forward: pending -> sent or pending -> failed.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Submission is the durable record of one contact-form request. RequestID is the
// idempotency key: at most one record exists per RequestID.
type Submission struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	RequestID  string    `gorm:"size:200;uniqueIndex;not null" json:"request_id"`
	Name       string    `gorm:"size:200;not null" json:"name"`
	Email      string    `gorm:"size:320;not null;index" json:"email"`
	Subject    string    `gorm:"size:200;not null" json:"subject"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	IPAddress  string    `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent  string    `gorm:"size:512" json:"user_agent,omitempty"`
	Status     string    `gorm:"size:16;not null;default:pending" json:"status"`
	SendGridID string    `gorm:"size:128" json:"sendgrid_id,omitempty"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName pins the table name used by the relational store.
func (Submission) TableName() string {
	return "submissions"
}

// Delivered reports whether a notification channel already confirmed this record.
func (s Submission) Delivered() bool {
	return s.Status == StatusSent || s.SendGridID != ""
}
