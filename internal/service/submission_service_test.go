package service

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/molunlade/contact-api/internal/delivery"
	"github.com/molunlade/contact-api/internal/dto"
	"github.com/molunlade/contact-api/internal/models"
	"github.com/molunlade/contact-api/internal/store"
)

type stubStore struct {
	records map[string]models.Submission
	patches []store.StatusPatch
	creates int
}

func newStubStore() *stubStore {
	return &stubStore{records: make(map[string]models.Submission)}
}

func (s *stubStore) GetOrCreate(ctx context.Context, sub models.Submission) (models.Submission, bool, error) {
	if existing, ok := s.records[sub.RequestID]; ok {
		return existing, false, nil
	}
	sub.Status = models.StatusPending
	s.records[sub.RequestID] = sub
	s.creates++
	return sub, true, nil
}

func (s *stubStore) UpdateStatus(ctx context.Context, requestID string, patch store.StatusPatch) error {
	s.patches = append(s.patches, patch)
	record, ok := s.records[requestID]
	if !ok {
		return nil
	}
	if patch.Status != "" && record.Status == models.StatusPending {
		record.Status = patch.Status
	}
	if patch.SendGridID != "" {
		record.SendGridID = patch.SendGridID
	}
	if patch.Error != "" {
		record.Error = patch.Error
	}
	s.records[requestID] = record
	return nil
}

func (s *stubStore) List(ctx context.Context) ([]models.Submission, error) {
	out := make([]models.Submission, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	return out, nil
}

type stubChain struct {
	outcome delivery.Outcome
	calls   int
}

func (c *stubChain) Deliver(ctx context.Context, sub models.Submission) delivery.Outcome {
	c.calls++
	return c.outcome
}

func sentOutcome() delivery.Outcome {
	return delivery.Outcome{
		Status:     models.StatusSent,
		Method:     delivery.MethodSendGrid,
		Email:      delivery.EmailSent,
		ExternalID: "sg-1",
	}
}

func newTestService(t *testing.T, chain DeliveryChain) (*stubStore, SubmissionService) {
	t.Helper()

	s := newStubStore()
	svc := NewSubmissionService(s, chain, NewValidator(), "secret", zerolog.Nop())
	return s, svc
}

func validRequest() dto.SubmissionRequest {
	return dto.SubmissionRequest{
		Name:    "Ada",
		Email:   "ada@Example.COM",
		Subject: "Hello",
		Message: "A perfectly fine message",
	}
}

func TestCreateGeneratesRequestID(t *testing.T) {
	_, svc := newTestService(t, &stubChain{outcome: sentOutcome()})

	result, err := svc.Create(context.Background(), validRequest(), dto.RequestMeta{IPAddress: "1.2.3.4", UserAgent: "go-test"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Submission.RequestID)
	require.Equal(t, models.StatusSent, result.Submission.Status)
	require.Equal(t, "sg-1", result.Submission.SendGridID)
	require.Equal(t, "1.2.3.4", result.Submission.IPAddress)
}

func TestCreateIsIdempotentPerRequestID(t *testing.T) {
	chain := &stubChain{outcome: sentOutcome()}
	s, svc := newTestService(t, chain)

	req := validRequest()
	req.RequestID = "fixed-id"

	first, err := svc.Create(context.Background(), req, dto.RequestMeta{})
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), req, dto.RequestMeta{})
	require.NoError(t, err)

	require.Equal(t, 1, s.creates, "exactly one record is created")
	require.Equal(t, 1, chain.calls, "at most one delivery attempt")
	require.Equal(t, first.Submission.RequestID, second.Submission.RequestID)
	require.Equal(t, first.Submission.Status, second.Submission.Status)
	require.Equal(t, delivery.MethodCached, second.Method)
}

func TestCreateNormalizesAndSanitizes(t *testing.T) {
	chain := &stubChain{outcome: sentOutcome()}
	s, svc := newTestService(t, chain)

	req := validRequest()
	req.RequestID = "sanitize"
	req.Name = "  Ada <script>alert(1)</script>  "
	req.Message = "hello <b>world</b>"

	_, err := svc.Create(context.Background(), req, dto.RequestMeta{})
	require.NoError(t, err)

	record := s.records["sanitize"]
	require.NotContains(t, record.Name, "<script>")
	require.NotContains(t, record.Message, "<b>")
	require.Contains(t, record.Message, "world")
	require.Equal(t, "ada@example.com", record.Email)
}

func TestCreateValidationBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*dto.SubmissionRequest)
		wantErr bool
	}{
		{"name at limit", func(r *dto.SubmissionRequest) { r.Name = strings.Repeat("a", 200) }, false},
		{"name over limit", func(r *dto.SubmissionRequest) { r.Name = strings.Repeat("a", 201) }, true},
		{"subject at limit", func(r *dto.SubmissionRequest) { r.Subject = strings.Repeat("s", 200) }, false},
		{"subject over limit", func(r *dto.SubmissionRequest) { r.Subject = strings.Repeat("s", 201) }, true},
		{"message at limit", func(r *dto.SubmissionRequest) { r.Message = strings.Repeat("m", 2000) }, false},
		{"message over limit", func(r *dto.SubmissionRequest) { r.Message = strings.Repeat("m", 2001) }, true},
		{"email minimal", func(r *dto.SubmissionRequest) { r.Email = "a@b.co" }, false},
		{"email malformed", func(r *dto.SubmissionRequest) { r.Email = "not-an-email" }, true},
		{"email missing tld", func(r *dto.SubmissionRequest) { r.Email = "a@b" }, true},
		{"missing name", func(r *dto.SubmissionRequest) { r.Name = "" }, true},
		{"missing message", func(r *dto.SubmissionRequest) { r.Message = "" }, true},
		{"request id over limit", func(r *dto.SubmissionRequest) { r.RequestID = strings.Repeat("r", 201) }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, svc := newTestService(t, &stubChain{outcome: sentOutcome()})

			req := validRequest()
			tc.mutate(&req)

			_, err := svc.Create(context.Background(), req, dto.RequestMeta{})
			if tc.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				require.NotEmpty(t, verr.Fields)
				require.Zero(t, s.creates, "no persistence on validation failure")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCreateHoneypotRejectedWithoutSideEffects(t *testing.T) {
	chain := &stubChain{outcome: sentOutcome()}
	s, svc := newTestService(t, chain)

	req := validRequest()
	req.Honeypot = "bot content"

	_, err := svc.Create(context.Background(), req, dto.RequestMeta{})
	require.ErrorIs(t, err, ErrSpam)
	require.Zero(t, s.creates)
	require.Zero(t, chain.calls)
}

func TestCreateExhaustedDeliveryFailsRequest(t *testing.T) {
	chain := &stubChain{outcome: delivery.Outcome{
		Status: models.StatusFailed,
		Email:  delivery.EmailFailed,
		Err:    delivery.ErrExhausted,
	}}
	s, svc := newTestService(t, chain)

	req := validRequest()
	req.RequestID = "doomed"

	_, err := svc.Create(context.Background(), req, dto.RequestMeta{})
	require.ErrorIs(t, err, delivery.ErrExhausted)

	// Status update still ran and captured the failure.
	require.Len(t, s.patches, 1)
	require.Equal(t, models.StatusFailed, s.patches[0].Status)
	require.NotEmpty(t, s.patches[0].Error)
	require.Equal(t, models.StatusFailed, s.records["doomed"].Status)
}

func TestCreateFallbackKeepsStatusPending(t *testing.T) {
	chain := &stubChain{outcome: delivery.Outcome{
		Status: models.StatusPending,
		Method: delivery.MethodTmp,
		Email:  delivery.EmailSkipped,
		Note:   delivery.FallbackNote,
	}}
	s, svc := newTestService(t, chain)

	req := validRequest()
	req.RequestID = "fallback"

	result, err := svc.Create(context.Background(), req, dto.RequestMeta{})
	require.NoError(t, err)
	require.Equal(t, delivery.FallbackNote, result.Note)
	require.NotEqual(t, models.StatusSent, result.Submission.Status)
	require.Equal(t, models.StatusPending, s.records["fallback"].Status)
}

func TestListRequiresExactToken(t *testing.T) {
	s, svc := newTestService(t, &stubChain{outcome: sentOutcome()})
	s.records["r"] = models.Submission{RequestID: "r"}

	_, err := svc.List(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.List(context.Background(), "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)

	submissions, err := svc.List(context.Background(), "secret")
	require.NoError(t, err)
	require.Len(t, submissions, 1)
}

func TestListFailsClosedWithoutConfiguredToken(t *testing.T) {
	s := newStubStore()
	svc := NewSubmissionService(s, &stubChain{}, NewValidator(), "", zerolog.Nop())

	_, err := svc.List(context.Background(), "anything")
	require.ErrorIs(t, err, ErrAdminTokenUnset)

	_, err = svc.List(context.Background(), "")
	require.ErrorIs(t, err, ErrAdminTokenUnset)
}
