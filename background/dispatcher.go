// Package background contains the worker pool that runs verification
// notifications off the HTTP request goroutine. Registration still waits for
// each notification's result, but the number of concurrent sends against the
// mail relay or broker is bounded by the worker count.
// In Nest.js, this could be analogous to a BullMQ queue with a fixed concurrency.
package background

import (
	"context"
	"errors"
	"sync"

	"github.com/user/signup-go/logging"
	"github.com/user/signup-go/notify"
)

// ErrDispatcherStopped is returned for jobs submitted after (or abandoned by) Stop.
var ErrDispatcherStopped = errors.New("background: verification dispatcher stopped")

// verificationJob is one pending notification plus the channel its result goes to.
type verificationJob struct {
	ctx   context.Context
	email string
	// done is buffered (capacity 1) so a worker never blocks on a caller that gave up.
	done chan error
}

// Dispatcher fans verification notifications out to a fixed pool of workers.
// It implements notify.Notifier, so it can wrap any other Notifier transparently.
type Dispatcher struct {
	next   notify.Notifier
	logger logging.Logger

	jobs     chan verificationJob
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// StartVerificationDispatcher launches workers goroutines that deliver
// notifications through next. queueSize jobs may wait while all workers are busy.
func StartVerificationDispatcher(next notify.Notifier, workers, queueSize int, logger logging.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	d := &Dispatcher{
		next:     next,
		logger:   logger,
		jobs:     make(chan verificationJob, queueSize),
		stopChan: make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	logger.Info(context.Background(), "verification dispatcher started", "workers", workers, "queue_size", queueSize)
	return d
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for {
		// Stop wins over queued jobs.
		select {
		case <-d.stopChan:
			return
		default:
		}

		select {
		case <-d.stopChan:
			return
		case job := <-d.jobs:
			// A caller that already gave up does not need the send.
			if err := job.ctx.Err(); err != nil {
				job.done <- err
				continue
			}
			err := d.next.SendVerification(job.ctx, job.email)
			if err != nil {
				d.logger.Debug(job.ctx, "verification worker send failed", "worker", id, "error", err)
			}
			job.done <- err
		}
	}
}

// SendVerification queues the notification and waits for a worker to deliver it.
// It returns early if ctx is done or the dispatcher is stopped.
func (d *Dispatcher) SendVerification(ctx context.Context, email string) error {
	job := verificationJob{ctx: ctx, email: email, done: make(chan error, 1)}

	// Checked first so a stopped dispatcher never accepts work into the buffer.
	select {
	case <-d.stopChan:
		return ErrDispatcherStopped
	default:
	}

	select {
	case d.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopChan:
		return ErrDispatcherStopped
	}

	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopChan:
		// The job may have finished just before the stop.
		select {
		case err := <-job.done:
			return err
		default:
			return ErrDispatcherStopped
		}
	}
}

// Stop signals the workers to exit and waits until they have. A send that is
// already in progress finishes first. Calling Stop more than once is safe.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
		d.wg.Wait()
		d.logger.Info(context.Background(), "verification dispatcher stopped")
	})
}
