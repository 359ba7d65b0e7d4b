package worker

import (
	"sync"
	"time"
)

type workerMeta struct {
	ch        chan *job
	lastUsed  time.Time
	enqueued  bool // parked in idle
	discarded bool // stopping or stopped
}

type jobChannelPool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	idle     []*workerMeta
	metadata map[chan *job]*workerMeta
	min      int
	max      int
	running  int
	expiry   time.Duration
	closed   bool
	quit     chan struct{}
	wg       sync.WaitGroup
}

const defaultWorkerIdle = 30 * time.Second

func newJobChannelPool(minWorkers, maxWorkers int, idle time.Duration) *jobChannelPool {
	if idle <= 0 {
		idle = defaultWorkerIdle
	}
	if minWorkers < 0 {
		minWorkers = 0
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers
	}
	p := &jobChannelPool{
		metadata: make(map[chan *job]*workerMeta),
		min:      minWorkers,
		max:      maxWorkers,
		expiry:   idle,
		quit:     make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)

	p.mu.Lock()
	for i := 0; i < minWorkers; i++ {
		p.spawnLocked()
	}
	p.mu.Unlock()

	go p.reapLoop()
	return p
}

// spawnLocked starts a worker and parks it in the idle queue.
func (p *jobChannelPool) spawnLocked() {
	worker := newWorker(p)
	meta := &workerMeta{ch: worker.jobChannel, lastUsed: time.Now(), enqueued: true}
	p.metadata[worker.jobChannel] = meta
	p.idle = append(p.idle, meta)
	p.running++
	worker.Start()
}

// acquire gets an idle worker, or spawns a new one. It returns nil once the
// pool is closed.
func (p *jobChannelPool) acquire() chan *job {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.closed {
			return nil
		}
		if meta := p.takeIdleLocked(); meta != nil {
			return meta.ch
		}
		if p.running < p.max {
			p.spawnLocked()
			continue
		}
		p.cond.Wait()
	}
}

// Release puts a worker back into the idle queue. It reports false when the
// worker should exit instead.
func (p *jobChannelPool) Release(ch chan *job) bool {
	p.mu.Lock()
	meta, ok := p.metadata[ch]
	if !ok || meta.discarded || p.closed {
		p.mu.Unlock()
		return false
	}
	if !meta.enqueued {
		meta.enqueued = true
		meta.lastUsed = time.Now()
		p.idle = append(p.idle, meta)
	}
	p.mu.Unlock()
	p.cond.Signal()
	return true
}

// forget drops a worker that has exited or is about to.
func (p *jobChannelPool) forget(ch chan *job) {
	p.mu.Lock()
	defer p.cond.Broadcast()
	defer p.mu.Unlock()

	meta, ok := p.metadata[ch]
	if !ok {
		return
	}
	delete(p.metadata, ch)
	meta.discarded = true
	p.running = max(p.running-1, 0)
}

// takeIdleLocked hands out the most recently released worker, so rarely used
// ones age out through reapIdle.
func (p *jobChannelPool) takeIdleLocked() *workerMeta {
	for n := len(p.idle); n > 0; n = len(p.idle) {
		meta := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		if !meta.discarded {
			meta.enqueued = false
			return meta
		}
	}
	return nil
}

func (p *jobChannelPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *jobChannelPool) reapLoop() {
	ticker := time.NewTicker(p.expiry)
	defer ticker.Stop()
	for {
		select {
		case <-p.quit:
			return
		case now := <-ticker.C:
			p.reapIdle(now)
		}
	}
}

// reapIdle stops idle workers unused since now-expiry, never going below min.
// It returns how many were stopped.
func (p *jobChannelPool) reapIdle(now time.Time) int {
	p.mu.Lock()
	surplus := p.running - p.min
	var expired []*workerMeta
	kept := make([]*workerMeta, 0, len(p.idle))
	for _, meta := range p.idle {
		switch {
		case meta.discarded:
		case surplus > 0 && now.Sub(meta.lastUsed) >= p.expiry:
			meta.discarded = true
			meta.enqueued = false
			expired = append(expired, meta)
			surplus--
		default:
			kept = append(kept, meta)
		}
	}
	p.idle = kept
	p.mu.Unlock()

	for _, meta := range expired {
		meta.ch <- nil
	}
	return len(expired)
}

// close stops idle workers right away; busy ones exit after their current job.
func (p *jobChannelPool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.quit)
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	p.cond.Broadcast()

	for _, meta := range idle {
		if !meta.discarded {
			meta.ch <- nil
		}
	}
	p.wg.Wait()
}
