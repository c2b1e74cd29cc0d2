package services

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/planventa/planventa/modules/planning/domain/entities/importjob"
	"github.com/planventa/planventa/modules/planning/infrastructure/persistence"
	"github.com/planventa/planventa/pkg/composables"
	"github.com/planventa/planventa/pkg/configuration"
)

// ImportWorkerPool claims queued import jobs and drives them to a terminal
// status. Workers coordinate through leases only: a worker that dies leaves
// an expiring lease behind, and whoever claims the job next resumes it from
// its last settled row.
type ImportWorkerPool struct {
	opts    configuration.ImportOptions
	imports *ImportService
	log     *logrus.Logger
}

func NewImportWorkerPool(opts configuration.ImportOptions, imports *ImportService, log *logrus.Logger) *ImportWorkerPool {
	return &ImportWorkerPool{
		opts:    opts,
		imports: imports,
		log:     log,
	}
}

// Run blocks until ctx is cancelled, supervising the configured number of
// workers. The context must carry the database pool.
func (p *ImportWorkerPool) Run(ctx context.Context) error {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.opts.Workers; i++ {
		workerID := fmt.Sprintf("%s-%d-%d", host, os.Getpid(), i)
		g.Go(func() error {
			return p.work(ctx, workerID)
		})
	}
	return g.Wait()
}

func (p *ImportWorkerPool) work(ctx context.Context, workerID string) error {
	log := p.log.WithField("worker_id", workerID)
	ctx = composables.WithLogger(ctx, log)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := p.imports.jobs.Claim(ctx, workerID, p.opts.LeaseTTL)
		if err != nil {
			if !errors.Is(err, persistence.ErrNoClaimableJobs) {
				log.WithError(err).Warn("failed to claim import job")
			}
			p.sleep(ctx, p.pollDelay())
			continue
		}

		p.execute(ctx, job, workerID)
	}
}

// execute runs a claimed job, releasing the lease when the run ends without
// settling the job so another worker can pick it up without waiting out the
// lease TTL.
func (p *ImportWorkerPool) execute(ctx context.Context, job *importjob.Job, workerID string) {
	log := p.log.WithFields(logrus.Fields{
		"worker_id": workerID,
		"job_id":    job.ID(),
	})
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("import worker panicked")
			p.release(ctx, job.ID())
		}
	}()

	if err := p.imports.RunJob(ctx, job, workerID); err != nil {
		log.WithError(err).Error("import job run failed")
		p.release(ctx, job.ID())
	}
}

// release clears the lease on a detached context, so it still works during
// shutdown when the worker context is already cancelled.
func (p *ImportWorkerPool) release(ctx context.Context, jobID uuid.UUID) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.imports.jobs.ReleaseLease(detached, jobID); err != nil {
		p.log.WithError(err).WithField("job_id", jobID).Warn("failed to release import job lease")
	}
}

func (p *ImportWorkerPool) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// pollDelay adds jitter so idle workers do not hit the claim query in
// lockstep.
func (p *ImportWorkerPool) pollDelay() time.Duration {
	jitter := time.Duration(rand.Int63n(int64(p.opts.PollInterval)/2 + 1))
	return p.opts.PollInterval + jitter
}
