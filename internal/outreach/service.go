// Package outreach is the caller-facing core of the pipeline. It personalizes
// drafts per investor, routes delivery through the configured transport, keeps
// the send log current, and owns the scheduler's lifecycle.
package outreach

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/founderkit/outreach/internal/auth"
	"github.com/founderkit/outreach/internal/email"
	"github.com/founderkit/outreach/internal/replies"
	"github.com/founderkit/outreach/internal/scheduler"
	"github.com/founderkit/outreach/internal/sendlog"
	"github.com/founderkit/outreach/internal/transport"
)

// Investor is one outreach target. Investors are supplied per request and
// never persisted; only the derived send records are.
type Investor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// MalformedInputError rejects a request before any transport call is made, so
// a bad investor list or timestamp has no partial side effects.
type MalformedInputError struct {
	Reason string
}

func (e *MalformedInputError) Error() string {
	return "malformed input: " + e.Reason
}

// TransportFactory builds a transport bound to one credential bundle. The
// scheduler calls it at fire time with the job's credential snapshot.
type TransportFactory func(creds auth.Credentials) transport.Transport

// Service implements the caller-facing operations consumed by the web layer.
type Service struct {
	transports TransportFactory
	log        *sendlog.Store
	sched      *scheduler.Scheduler
	now        func() time.Time
}

// New creates a Service with its own stopped scheduler. Call Start to begin
// firing deferred jobs.
func New(transports TransportFactory, log *sendlog.Store) *Service {
	s := &Service{
		transports: transports,
		log:        log,
		now:        time.Now,
	}
	s.sched = scheduler.New(s.deliver)
	return s
}

// Start launches the background scheduler. It runs until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.sched.Start(ctx)
}

// Done is closed once the background scheduler has shut down.
func (s *Service) Done() <-chan struct{} {
	return s.sched.Done()
}

// SendEmail personalizes the body template for each investor and sends one
// email per investor immediately, appending a send-log record per delivery.
// Sends happen sequentially; the first failure aborts the remainder.
func (s *Service) SendEmail(ctx context.Context, creds auth.Credentials, subject, bodyTemplate string, investors []Investor) error {
	if err := s.checkInput(creds, investors); err != nil {
		return err
	}

	for _, inv := range investors {
		body := email.Personalize(bodyTemplate, inv.Name)
		if err := s.sendNow(ctx, creds, subject, body, []string{inv.Email}, inv.Name); err != nil {
			return err
		}
	}
	return nil
}

// SaveDraft personalizes the body template for each investor and stores one
// draft per investor at the provider. Drafts are not sends and are never
// logged.
func (s *Service) SaveDraft(ctx context.Context, creds auth.Credentials, subject, bodyTemplate string, investors []Investor) error {
	if err := s.checkInput(creds, investors); err != nil {
		return err
	}

	t := s.transports(creds)
	for _, inv := range investors {
		body := email.Personalize(bodyTemplate, inv.Name)
		raw, err := email.Compose("me", []string{inv.Email}, subject, body)
		if err != nil {
			return err
		}
		if err := t.CreateDraft(ctx, raw); err != nil {
			return err
		}
	}
	return nil
}

// ScheduleIndividualEmail schedules one personalized send at runAt and
// returns the job id.
func (s *Service) ScheduleIndividualEmail(creds auth.Credentials, subject, bodyTemplate string, inv Investor, runAt time.Time) (string, error) {
	if err := s.checkInput(creds, []Investor{inv}); err != nil {
		return "", err
	}

	body := email.Personalize(bodyTemplate, inv.Name)
	return s.sched.ScheduleIndividual(subject, body, inv.Email, runAt, creds)
}

// ScheduleBatchEmails spreads sending over calendar days: batch i fires i days
// from now. A template carrying the name placeholder is personalized per
// investor, so every member of a batch gets an individual job at the batch's
// day offset; without the placeholder each batch is a single blind-copied job.
func (s *Service) ScheduleBatchEmails(creds auth.Credentials, subject, bodyTemplate string, investors []Investor, batchSize int) ([]string, error) {
	if err := s.checkInput(creds, investors); err != nil {
		return nil, err
	}
	if batchSize < 1 {
		return nil, &MalformedInputError{Reason: "batch size must be positive"}
	}

	if !strings.Contains(bodyTemplate, email.NamePlaceholder) {
		return s.sched.ScheduleBatch(subject, bodyTemplate, addresses(investors), batchSize, creds)
	}

	now := s.now()
	var ids []string
	for i := 0; i*batchSize < len(investors); i++ {
		chunk := investors[i*batchSize : min((i+1)*batchSize, len(investors))]
		runAt := now.AddDate(0, 0, i)
		for _, inv := range chunk {
			body := email.Personalize(bodyTemplate, inv.Name)
			id, err := s.sched.ScheduleIndividual(subject, body, inv.Email, runAt, creds)
			if err != nil {
				return ids, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ScheduleAllAtOnce schedules every investor's email to fire at the same
// instant. Personalized templates become one job per investor; a shared body
// becomes a single blind-copied job.
func (s *Service) ScheduleAllAtOnce(creds auth.Credentials, subject, bodyTemplate string, investors []Investor, runAt time.Time) ([]string, error) {
	if err := s.checkInput(creds, investors); err != nil {
		return nil, err
	}

	if !strings.Contains(bodyTemplate, email.NamePlaceholder) {
		id, err := s.sched.ScheduleAllAtOnce(subject, bodyTemplate, addresses(investors), runAt, creds)
		if err != nil {
			return nil, err
		}
		return []string{id}, nil
	}

	var ids []string
	for _, inv := range investors {
		body := email.Personalize(bodyTemplate, inv.Name)
		id, err := s.sched.ScheduleIndividual(subject, body, inv.Email, runAt, creds)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetScheduledEmails lists pending jobs ordered by run time.
func (s *Service) GetScheduledEmails() []scheduler.PendingJob {
	return s.sched.Pending()
}

// SentEmails returns the full send log in append order.
func (s *Service) SentEmails() ([]sendlog.Record, error) {
	return s.log.All()
}

// FetchReplies reports inbox replies from addresses the send log knows about.
func (s *Service) FetchReplies(ctx context.Context, creds auth.Credentials) ([]replies.Reply, error) {
	if err := creds.Validate(); err != nil {
		return nil, &transport.AuthError{Op: "fetch replies", Err: err}
	}

	known, err := s.log.RecipientAddresses()
	if err != nil {
		return nil, err
	}
	return replies.Fetch(ctx, s.transports(creds), known)
}

// deliver is the scheduler's send function: an already-personalized payload
// sent with the job's credential snapshot, without an investor label.
func (s *Service) deliver(ctx context.Context, subject, body string, recipients []string, creds auth.Credentials) error {
	return s.sendNow(ctx, creds, subject, body, recipients, "")
}

// sendNow resolves the sender, composes, sends, and appends the send-log
// record. A log-write failure surfaces as a PersistenceError even though the
// message already left, so the caller knows the history is incomplete.
func (s *Service) sendNow(ctx context.Context, creds auth.Credentials, subject, body string, recipients []string, investorName string) error {
	t := s.transports(creds)

	sender, err := t.SenderAddress(ctx)
	if err != nil {
		return err
	}

	raw, err := email.Compose(sender, recipients, subject, body)
	if err != nil {
		return err
	}

	if err := t.Send(ctx, raw); err != nil {
		return err
	}

	slog.Info("email sent",
		"transport", t.Name(),
		"recipients", len(recipients),
		"investor", investorName,
	)

	return s.log.Append(sendlog.Record{
		To:           recipients,
		Subject:      subject,
		Body:         body,
		InvestorName: investorName,
		Timestamp:    s.now().UTC().Format(time.RFC3339),
	})
}

// checkInput validates credentials and the investor list before any transport
// call.
func (s *Service) checkInput(creds auth.Credentials, investors []Investor) error {
	if err := creds.Validate(); err != nil {
		return &transport.AuthError{Op: "validate credentials", Err: err}
	}
	if len(investors) == 0 {
		return &MalformedInputError{Reason: "no investors provided"}
	}
	for _, inv := range investors {
		if inv.Email == "" {
			return &MalformedInputError{Reason: "investor missing email address"}
		}
	}
	return nil
}

func addresses(investors []Investor) []string {
	out := make([]string, len(investors))
	for i, inv := range investors {
		out[i] = inv.Email
	}
	return out
}
