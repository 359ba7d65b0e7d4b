package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
)

var ErrJobPanicked = errors.New("job panicked")

const (
	jobQueued int32 = iota
	jobRunning
	jobAbandoned
)

type job struct {
	client string
	ctx    context.Context
	fn     func(context.Context)
	state  atomic.Int32
	queued atomic.Bool // still holds a dispatcher queue slot
	done   chan struct{}
	err    error
}

func newJob(ctx context.Context, client string, fn func(context.Context)) *job {
	j := &job{client: client, ctx: ctx, fn: fn, done: make(chan struct{})}
	j.queued.Store(true)
	return j
}

// abandon marks a job that has not started yet so no worker will run it.
func (j *job) abandon() bool {
	return j.state.CompareAndSwap(jobQueued, jobAbandoned)
}

func (j *job) abandoned() bool {
	return j.state.Load() == jobAbandoned
}

func (j *job) execute() {
	if !j.state.CompareAndSwap(jobQueued, jobRunning) {
		return
	}
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job panicked", "client", j.client, "panic", r, "stack", string(debug.Stack()))
			j.err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	j.fn(j.ctx)
}

// Worker runs jobs handed to its channel until it receives a nil job.
type Worker struct {
	pool       *jobChannelPool
	jobChannel chan *job
}

func newWorker(pool *jobChannelPool) *Worker {
	return &Worker{pool: pool, jobChannel: make(chan *job)}
}

func (w *Worker) Start() {
	w.pool.wg.Add(1)
	go func() {
		defer w.pool.wg.Done()
		for {
			j := <-w.jobChannel
			if j == nil {
				w.pool.forget(w.jobChannel)
				return
			}
			j.execute()
			if !w.pool.Release(w.jobChannel) {
				w.pool.forget(w.jobChannel)
				return
			}
		}
	}()
}
