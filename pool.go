// MIT License
//
// Copyright (c) 2024 The Nailgun Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package nailgun

import (
	"sync"

	"golang.org/x/time/rate"
)

// PoolConfig controls the bounded worker pool.
type PoolConfig struct {
	// Capacity is the hard maximum of simultaneously live workers
	// (idle + in-flight).
	Capacity int
	// IdleHighWater is the number of idle workers the pool will keep
	// around for reuse; a Give beyond this terminates the returning
	// worker instead of recycling it.
	IdleHighWater int
	// RejectNew selects the at-capacity policy: when true, Take returns
	// ErrPoolAtCapacity instead of blocking once Capacity is reached.
	RejectNew bool
	// SpawnBurstsPerSecond, when > 0, bounds how often Take may spawn a
	// brand new worker (as opposed to recycling an idle one) under the
	// RejectNew policy: a burst of reconnecting clients is throttled into
	// ErrPoolAtCapacity rather than spawning a worker per connection.
	// Zero disables the limiter; recycled workers are never throttled.
	SpawnBurstsPerSecond float64
}

// Pool is a bounded, reusable pool of *Worker. It owns idle workers;
// in-flight workers are owned by whichever goroutine is serving a
// connection with them. A worker is never a member of both the idle set
// and the in-flight set at once.
type Pool struct {
	cfg PoolConfig

	mu       sync.Mutex
	cond     *sync.Cond
	idle     []*Worker
	numLive  int
	draining bool

	spawnLimiter *rate.Limiter

	server *Server
}

func newPool(cfg PoolConfig, server *Server) *Pool {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1
	}
	p := &Pool{cfg: cfg, server: server}
	p.cond = sync.NewCond(&p.mu)
	if cfg.RejectNew && cfg.SpawnBurstsPerSecond > 0 {
		p.spawnLimiter = rate.NewLimiter(rate.Limit(cfg.SpawnBurstsPerSecond), 1)
	}
	return p
}

// Take returns an idle worker, spawning a new one if the pool is under
// capacity, or blocks until one becomes available. With RejectNew set, Take
// returns ErrPoolAtCapacity immediately instead of blocking once capacity is
// reached and no idle worker exists.
func (p *Pool) Take() (*Worker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.draining {
			return nil, ErrPoolShutdown
		}
		if n := len(p.idle); n > 0 {
			w := p.idle[n-1]
			p.idle = p.idle[:n-1]
			w.setState(stateBound)
			return w, nil
		}
		if p.numLive < p.cfg.Capacity {
			if p.spawnLimiter != nil && !p.spawnLimiter.Allow() {
				return nil, ErrPoolAtCapacity
			}
			w := newWorker(p, p.server)
			p.numLive++
			w.setState(stateBound)
			return w, nil
		}
		if p.cfg.RejectNew {
			return nil, ErrPoolAtCapacity
		}
		p.cond.Wait()
	}
}

// Give returns a worker to the pool. If the idle set is already at the
// configured high-water mark, or the pool is draining, the worker is
// terminated (its live count is released) instead of recycled. Give returns
// ErrWorkerNotOwned, without touching any bookkeeping, if w's recorded owning
// pool is a different pool. A worker of this pool that was not handed out by
// Take, or is given back twice, is not detected.
func (p *Pool) Give(w *Worker) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w.pool != p {
		return ErrWorkerNotOwned
	}

	if p.draining || len(p.idle) >= p.cfg.IdleHighWater {
		w.setState(stateTerminated)
		p.numLive--
		p.cond.Broadcast()
		return nil
	}

	w.setState(stateIdle)
	p.idle = append(p.idle, w)
	p.cond.Broadcast()
	return nil
}

// Shutdown marks the pool as draining: no further Take succeeds, and idle
// workers are dropped. In-flight workers finish their current session (the
// caller serving them calls Give normally afterwards, which then terminates
// them because draining is set) and are never forcibly killed.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.draining = true
	for _, w := range p.idle {
		w.setState(stateTerminated)
		p.numLive--
	}
	p.idle = nil
	p.cond.Broadcast()
}

// NumLive reports the current count of live (idle + in-flight) workers, for
// tests and diagnostics.
func (p *Pool) NumLive() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numLive
}
