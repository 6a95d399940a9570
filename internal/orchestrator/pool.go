package orchestrator

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"server/internal/infra"
)

// Pool runs submitted jobs on background goroutines, bounding how many
// generate concurrently. Jobs beyond the bound stay pending until a slot
// frees up, so a standalone worker can also pick them up.
type Pool struct {
	orch *Orchestrator
	sem  *semaphore.Weighted
	log  infra.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewPool(orch *Orchestrator, size int, log infra.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		orch:    orch,
		sem:     semaphore.NewWeighted(int64(size)),
		log:     log,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Enqueue schedules a job for execution and returns immediately. The job
// waits in the pending state until a slot is acquired.
func (p *Pool) Enqueue(jobID string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.baseCtx, 1); err != nil {
			p.log.Warn().Str("job_id", jobID).Err(err).Msg("pool shut down before job started")
			return
		}
		defer p.sem.Release(1)
		if err := p.orch.Run(p.baseCtx, jobID); err != nil {
			p.log.Error().Str("job_id", jobID).Err(err).Msg("batch job run failed")
		}
	}()
}

// Shutdown stops accepting work and waits for running jobs to finish or
// notice the cancellation.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
