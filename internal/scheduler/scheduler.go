// Package scheduler runs deferred send jobs on a single background goroutine,
// independent of request handling. Jobs are one-shot: each fires exactly once
// at or after its run time and is removed from the pending set whether the
// send succeeds or fails.
package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/founderkit/outreach/internal/auth"
)

// bodyPreviewLen is how much of the body the pending listing exposes.
const bodyPreviewLen = 100

// SendFunc delivers one job's payload. The scheduler invokes it with the
// credential snapshot embedded in the job at scheduling time.
type SendFunc func(ctx context.Context, subject, body string, recipients []string, creds auth.Credentials) error

// Job is a pending deferred send.
type Job struct {
	ID          string
	RunAt       time.Time
	Subject     string
	Body        string
	Recipients  []string
	Credentials auth.Credentials

	// seq breaks run-time ties so same-instant jobs fire in schedule order.
	seq uint64
}

// PendingJob is the caller-facing view of a pending job.
type PendingJob struct {
	ID          string    `json:"id"`
	NextRunTime time.Time `json:"next_run_time"`
	Subject     string    `json:"subject"`
	BodyPreview string    `json:"body_preview"`
	Recipients  []string  `json:"recipients"`
}

// Scheduler holds pending jobs in a time-ordered heap and fires them from one
// background goroutine. Failed sends are logged and dropped, never retried;
// retrying a non-idempotent send risks duplicate delivery.
type Scheduler struct {
	send SendFunc
	now  func() time.Time

	mu      sync.Mutex
	pending jobHeap
	ids     map[string]struct{}
	nextSeq uint64

	wake chan struct{}
	done chan struct{}
}

// New creates a stopped scheduler. Jobs may be added before Start; they are
// held until the background goroutine runs.
func New(send SendFunc) *Scheduler {
	return &Scheduler{
		send: send,
		now:  time.Now,
		ids:  make(map[string]struct{}),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Start launches the scheduling goroutine. It fires due jobs sequentially
// until the context is cancelled; a slow send delays subsequent due jobs by
// design.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

// Done is closed once the scheduling goroutine has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// ScheduleIndividual schedules one send to a single recipient at runAt.
func (s *Scheduler) ScheduleIndividual(subject, body, recipient string, runAt time.Time, creds auth.Credentials) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("empty recipient")
	}

	id := jobID(runAt, recipient)
	err := s.add(&Job{
		ID:          id,
		RunAt:       runAt,
		Subject:     subject,
		Body:        body,
		Recipients:  []string{recipient},
		Credentials: creds,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ScheduleBatch partitions recipients into consecutive chunks of at most
// batchSize and schedules chunk i to fire i calendar days from now, spreading
// sending load across days to respect deliverability limits.
func (s *Scheduler) ScheduleBatch(subject, body string, recipients []string, batchSize int, creds auth.Credentials) ([]string, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients")
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	now := s.now()
	var ids []string
	for i := 0; i*batchSize < len(recipients); i++ {
		chunk := recipients[i*batchSize : min((i+1)*batchSize, len(recipients))]
		runAt := now.AddDate(0, 0, i)

		id := jobID(runAt, fmt.Sprintf("batch-%d", i+1))
		err := s.add(&Job{
			ID:          id,
			RunAt:       runAt,
			Subject:     subject,
			Body:        body,
			Recipients:  chunk,
			Credentials: creds,
		})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ScheduleAllAtOnce schedules a single job that sends to every recipient at
// the same instant.
func (s *Scheduler) ScheduleAllAtOnce(subject, body string, recipients []string, runAt time.Time, creds auth.Credentials) (string, error) {
	if len(recipients) == 0 {
		return "", fmt.Errorf("no recipients")
	}

	id := jobID(runAt, "all")
	err := s.add(&Job{
		ID:          id,
		RunAt:       runAt,
		Subject:     subject,
		Body:        body,
		Recipients:  recipients,
		Credentials: creds,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Pending returns the pending jobs ordered by run time.
func (s *Scheduler) Pending() []PendingJob {
	s.mu.Lock()
	jobs := make([]*Job, len(s.pending))
	copy(jobs, s.pending)
	s.mu.Unlock()

	// The heap slice is only partially ordered; sort the copy.
	sorted := jobHeap(jobs)
	out := make([]PendingJob, 0, len(jobs))
	for sorted.Len() > 0 {
		job := heap.Pop(&sorted).(*Job)
		preview := job.Body
		if len(preview) > bodyPreviewLen {
			preview = preview[:bodyPreviewLen]
		}
		out = append(out, PendingJob{
			ID:          job.ID,
			NextRunTime: job.RunAt,
			Subject:     job.Subject,
			BodyPreview: preview,
			Recipients:  append([]string(nil), job.Recipients...),
		})
	}
	return out
}

// jobID derives a job identity from the run instant and a discriminator
// (recipient address or batch index), so jobs scheduled in the same tick for
// different targets cannot collide.
func jobID(runAt time.Time, discriminator string) string {
	return fmt.Sprintf("%d-%s", runAt.UnixNano(), discriminator)
}

// add inserts a job, rejecting duplicate ids. Job ids are unique for the
// lifetime of the scheduler, including jobs that already fired.
func (s *Scheduler) add(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[job.ID]; exists {
		return fmt.Errorf("job id %q already exists", job.ID)
	}
	s.ids[job.ID] = struct{}{}

	job.seq = s.nextSeq
	s.nextSeq++
	heap.Push(&s.pending, job)

	// Nudge the runner in case this job is due before the current head.
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// run is the scheduling loop. It sleeps until the earliest pending job is due,
// wakes early when a new job is added, and exits on context cancellation.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	slog.Info("scheduler started")
	for {
		s.mu.Lock()
		var wait time.Duration
		hasNext := s.pending.Len() > 0
		if hasNext {
			wait = s.pending[0].RunAt.Sub(s.now())
		}
		s.mu.Unlock()

		var timerC <-chan time.Time
		var timer *time.Timer
		if hasNext {
			if wait < 0 {
				wait = 0
			}
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			slog.Info("scheduler stopped", "pending_jobs", len(s.Pending()))
			return
		case <-s.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-timerC:
			s.fireDue(ctx)
		}
	}
}

// fireDue pops and runs every job whose run time has arrived. Jobs run
// sequentially on the scheduler goroutine; a job is gone from the pending set
// once fired, whether it succeeds or fails.
func (s *Scheduler) fireDue(ctx context.Context) {
	for {
		s.mu.Lock()
		if s.pending.Len() == 0 || s.pending[0].RunAt.After(s.now()) {
			s.mu.Unlock()
			return
		}
		job := heap.Pop(&s.pending).(*Job)
		s.mu.Unlock()

		err := s.send(ctx, job.Subject, job.Body, job.Recipients, job.Credentials)
		if err != nil {
			slog.Error("scheduled send failed",
				"job_id", job.ID,
				"recipients", len(job.Recipients),
				"error", err,
			)
			continue
		}
		slog.Info("scheduled send completed",
			"job_id", job.ID,
			"recipients", len(job.Recipients),
		)
	}
}
