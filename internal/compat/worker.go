package compat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oggyb/devmatch/internal/db"
	"github.com/oggyb/devmatch/internal/metrics"
	"github.com/oggyb/devmatch/internal/protocol"
)

// Job asks for the score of one freshly created match.
type Job struct {
	MatchID uint64
	UserA   uint64
	UserB   uint64
}

// Outcome reports how a job ended. Err is nil on success.
type Outcome struct {
	Job    Job
	Result Result
	Err    error
}

// Notifier delivers realtime events.
type Notifier interface {
	NotifyMatch(matchID uint64, event string, data any)
	NotifyUser(userID uint64, event string, data any)
}

type UserFinder interface {
	FindByID(ctx context.Context, id uint64) (*db.User, error)
}

type MatchUpdater interface {
	UpdateCompatibility(ctx context.Context, matchID uint64, score int, summary string) error
}

type WorkerConfig struct {
	Workers   int
	QueueSize int
	// Timeout bounds one job end to end.
	Timeout time.Duration
}

// Worker runs scoring jobs on a fixed pool of goroutines fed by a bounded queue.
type Worker struct {
	cfg      WorkerConfig
	scorer   Scorer
	users    UserFinder
	matches  MatchUpdater
	notifier Notifier
	log      *slog.Logger
	metrics  *metrics.Metrics

	jobs     chan Job
	outcomes chan Outcome
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewWorker(cfg WorkerConfig, scorer Scorer, users UserFinder, matches MatchUpdater, notifier Notifier, log *slog.Logger, m *metrics.Metrics) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Worker{
		cfg:      cfg,
		scorer:   scorer,
		users:    users,
		matches:  matches,
		notifier: notifier,
		log:      log,
		metrics:  m,
		jobs:     make(chan Job, cfg.QueueSize),
		outcomes: make(chan Outcome, cfg.QueueSize),
		stopped:  make(chan struct{}),
	}
}

// Submit enqueues a job without blocking. A full queue or a stopped worker
// drops the job; the match simply keeps no score.
func (w *Worker) Submit(job Job) bool {
	select {
	case <-w.stopped:
		return false
	default:
	}
	select {
	case w.jobs <- job:
		return true
	default:
		w.log.Warn("compatibility queue full, dropping job", "match_id", job.MatchID)
		w.metrics.CompatOutcomes.WithLabelValues("dropped").Inc()
		return false
	}
}

// Outcomes publishes one Outcome per processed job. Publishing never blocks;
// outcomes nobody reads are discarded once the buffer is full.
func (w *Worker) Outcomes() <-chan Outcome { return w.outcomes }

// Run processes jobs until ctx is done, then waits for in-flight jobs.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-w.jobs:
					w.process(ctx, job)
				}
			}
		}()
	}
	<-ctx.Done()
	w.stopOnce.Do(func() { close(w.stopped) })
	wg.Wait()
	return nil
}

func (w *Worker) process(ctx context.Context, job Job) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	log := w.log.With("match_id", job.MatchID)
	res, err := w.score(ctx, job)
	if err != nil {
		// never surfaced, never retried
		log.Error("compatibility scoring failed", "err", err)
		w.metrics.CompatOutcomes.WithLabelValues("error").Inc()
		w.publish(Outcome{Job: job, Err: err})
		return
	}

	payload := protocol.CompatibilityReady{
		MatchID:              protocol.FormatID(job.MatchID),
		CompatibilityScore:   res.Score,
		CompatibilitySummary: res.Summary,
	}
	w.notifier.NotifyMatch(job.MatchID, protocol.EventCompatibilityReady, payload)
	w.notifier.NotifyUser(job.UserA, protocol.EventCompatibilityReady, payload)
	w.notifier.NotifyUser(job.UserB, protocol.EventCompatibilityReady, payload)

	log.Info("compatibility generated", "score", res.Score)
	w.metrics.CompatOutcomes.WithLabelValues("ok").Inc()
	w.publish(Outcome{Job: job, Result: res})
}

func (w *Worker) score(ctx context.Context, job Job) (Result, error) {
	a, err := w.users.FindByID(ctx, job.UserA)
	if err != nil {
		return Result{}, fmt.Errorf("load user %d: %w", job.UserA, err)
	}
	b, err := w.users.FindByID(ctx, job.UserB)
	if err != nil {
		return Result{}, fmt.Errorf("load user %d: %w", job.UserB, err)
	}

	res, err := w.scorer.Score(ctx, ProfileFromUser(*a), ProfileFromUser(*b))
	if err != nil {
		return Result{}, err
	}
	if err := w.matches.UpdateCompatibility(ctx, job.MatchID, res.Score, res.Summary); err != nil {
		return Result{}, fmt.Errorf("store compatibility: %w", err)
	}
	return res, nil
}

func (w *Worker) publish(o Outcome) {
	select {
	case w.outcomes <- o:
	default:
	}
}
