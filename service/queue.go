// service/queue.go
package service

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQueueFull is returned when no worker slot is free.
var ErrQueueFull = errors.New("invocation queue is full")

// ErrQueueStopped is returned once Stop has been called.
var ErrQueueStopped = errors.New("invocation queue is stopped")

// QueueProcessor runs contact-flow invocations on a fixed pool of workers.
// Jobs share nothing but the coordinator's immutable configuration.
type QueueProcessor struct {
	coordinator  *Coordinator
	jobs         chan *job
	processingWg sync.WaitGroup
	shutdownCh   chan struct{}
	stopOnce     sync.Once
	mu           sync.RWMutex
	stopped      bool
}

type job struct {
	ctx      context.Context
	auth     *AuthRequest
	vote     *VoteRequest
	resultCh chan *ProcessingResult
}

// ProcessingResult contains the result of an asynchronous invocation
type ProcessingResult struct {
	Auth      *AuthResult
	Vote      *VoteResult
	Err       error
	Timestamp int64
}

// NewQueueProcessor creates a new queue processor
func NewQueueProcessor(coordinator *Coordinator, workers, queueSize int) *QueueProcessor {
	qp := &QueueProcessor{
		coordinator: coordinator,
		jobs:        make(chan *job, queueSize),
		shutdownCh:  make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		qp.processingWg.Add(1)
		go qp.worker()
	}
	return qp
}

// Stop lets running invocations finish and refuses new ones. Queued jobs
// that no worker picked up are answered with ErrQueueStopped.
func (qp *QueueProcessor) Stop() {
	qp.stopOnce.Do(func() {
		qp.mu.Lock()
		qp.stopped = true
		qp.mu.Unlock()

		close(qp.shutdownCh)
		qp.processingWg.Wait()
		for {
			select {
			case j := <-qp.jobs:
				j.resultCh <- &ProcessingResult{Err: ErrQueueStopped, Timestamp: time.Now().Unix()}
				close(j.resultCh)
			default:
				return
			}
		}
	})
}

// QueueAuthentication adds a login to the queue.
func (qp *QueueProcessor) QueueAuthentication(ctx context.Context, req AuthRequest) (<-chan *ProcessingResult, error) {
	return qp.enqueue(&job{ctx: ctx, auth: &req})
}

// QueueVote adds a vote submission to the queue.
func (qp *QueueProcessor) QueueVote(ctx context.Context, req VoteRequest) (<-chan *ProcessingResult, error) {
	return qp.enqueue(&job{ctx: ctx, vote: &req})
}

func (qp *QueueProcessor) enqueue(j *job) (<-chan *ProcessingResult, error) {
	qp.mu.RLock()
	defer qp.mu.RUnlock()
	if qp.stopped {
		return nil, ErrQueueStopped
	}

	j.resultCh = make(chan *ProcessingResult, 1)
	select {
	case qp.jobs <- j:
		return j.resultCh, nil
	default:
		return nil, ErrQueueFull
	}
}

func (qp *QueueProcessor) worker() {
	defer qp.processingWg.Done()

	for {
		select {
		case <-qp.shutdownCh:
			return
		case j := <-qp.jobs:
			qp.run(j)
		}
	}
}

func (qp *QueueProcessor) run(j *job) {
	res := &ProcessingResult{}
	if err := j.ctx.Err(); err != nil {
		// The caller gave up while the job was queued.
		res.Err = err
	} else if j.auth != nil {
		res.Auth, res.Err = qp.coordinator.Authenticate(j.ctx, *j.auth)
	} else {
		res.Vote, res.Err = qp.coordinator.RecordVote(j.ctx, *j.vote)
	}
	res.Timestamp = time.Now().Unix()
	j.resultCh <- res
	close(j.resultCh)
}
