package worker

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrDispatcherBusy   = errors.New("dispatcher queue is full")
	ErrDispatcherClosed = errors.New("dispatcher is closed")
)

type DispatcherConfig struct {
	MinWorkers  int
	MaxWorkers  int
	QueueSize   int
	IdleTimeout time.Duration
}

type clientQueue struct {
	jobs     []*job
	enqueued bool
}

// Dispatcher bounds how many pipeline runs execute at once. Waiting jobs are
// served round-robin across clients so one client cannot starve the rest.
type Dispatcher struct {
	pool      *jobChannelPool
	jobQueue  chan *job
	queueSize int64
	pending   atomic.Int64
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	queues    map[string]*clientQueue // job queue for each client
	ready     *list.List              // LRU queue storing client keys
	positions map[string]*list.Element
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	d := newDispatcherQueues(cfg.QueueSize)
	d.pool = newJobChannelPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.IdleTimeout)
	go d.run()
	return d
}

func newDispatcherQueues(queueSize int) *Dispatcher {
	return &Dispatcher{
		jobQueue:  make(chan *job, queueSize),
		queueSize: int64(queueSize),
		quit:      make(chan struct{}),
		stopped:   make(chan struct{}),
		queues:    make(map[string]*clientQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
	}
}

// Submit runs fn on a pooled worker and waits for it to return. It fails
// fast with ErrDispatcherBusy when the queue is full. If ctx ends before a
// worker picks the job up, fn never runs and ctx.Err() is returned; once fn
// has started, Submit waits for it.
func (d *Dispatcher) Submit(ctx context.Context, client string, fn func(context.Context)) error {
	select {
	case <-d.quit:
		return ErrDispatcherClosed
	default:
	}
	if d.pending.Add(1) > d.queueSize {
		d.pending.Add(-1)
		return ErrDispatcherBusy
	}

	j := newJob(ctx, client, fn)
	select {
	case d.jobQueue <- j:
	default:
		d.releaseSlot(j)
		return ErrDispatcherBusy
	}

	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		if j.abandon() {
			d.releaseSlot(j)
			return ctx.Err()
		}
	case <-d.quit:
		if j.abandon() {
			d.releaseSlot(j)
			return ErrDispatcherClosed
		}
	}
	<-j.done
	return j.err
}

// Close stops accepting jobs, abandons queued ones and waits for running
// jobs to finish.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.quit)
		d.pool.close()
		<-d.stopped
	})
}

func (d *Dispatcher) run() {
	defer close(d.stopped)
	for {
		d.drain()
		j, ok := d.next()
		if !ok {
			select {
			case j := <-d.jobQueue:
				d.enqueueJob(j)
			case <-d.quit:
				return
			}
			continue
		}

		workerChan := d.pool.acquire()
		d.releaseSlot(j)
		if workerChan == nil {
			j.abandon()
			return
		}
		slog.Debug("dispatch job", "client", j.client, "pending", d.pending.Load())
		workerChan <- j
	}
}

// releaseSlot gives back the queue slot a job took in Submit. The caller
// abandoning it and the run loop handing it off may both try; only the first counts.
func (d *Dispatcher) releaseSlot(j *job) {
	if j.queued.CompareAndSwap(true, false) {
		d.pending.Add(-1)
	}
}

// drain moves every job waiting in the channel into the per-client queues.
func (d *Dispatcher) drain() {
	for {
		select {
		case j := <-d.jobQueue:
			d.enqueueJob(j)
		default:
			return
		}
	}
}

func (d *Dispatcher) enqueueJob(j *job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[j.client]
	if q == nil {
		q = &clientQueue{}
		d.queues[j.client] = q
	}
	q.jobs = append(q.jobs, j)
	if q.enqueued {
		return
	}
	q.enqueued = true
	d.positions[j.client] = d.ready.PushBack(j.client)
}

// next pops the first job of the client at the front of the ready list and
// moves that client to the back. Abandoned jobs are dropped on the way; their
// slots were already released by Submit.
func (d *Dispatcher) next() (*job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for elem := d.ready.Front(); elem != nil; elem = d.ready.Front() {
		client := elem.Value.(string)
		q := d.queues[client]
		j := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		if len(q.jobs) == 0 {
			q.enqueued = false
			d.ready.Remove(elem)
			delete(d.positions, client)
			delete(d.queues, client)
		} else {
			d.ready.MoveToBack(elem)
		}
		if j.abandoned() {
			continue
		}
		return j, true
	}
	return nil, false
}
