package collector

import (
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// coordinator is §C3 (plus the §C6 Reclaimer, embedded in its drain step).
// It owns the one mutex and one condition variable the whole collector
// shares with the engine goroutine (see engine.go), the seen-workers set for
// the in-flight cycle, and the deferred to-zero list.
type coordinator struct {
	mu   sync.Mutex
	cond *sync.Cond

	host Host
	log  *zap.Logger
	reg  registry
	trig trigger

	aliveWorkers   int
	seen           map[WorkerID]struct{}
	firstWorker    WorkerID
	firstWorkerSet bool

	// collectorRunningRequest is set once every alive worker has contributed
	// its stack accounting for the current cycle; it is the engine's cond
	// predicate. Guarded by mu.
	collectorRunningRequest bool

	// collectorRunning is read lock-free from the rendezvous fast path, so it
	// is an atomic rather than a plain bool guarded by mu; terminate is an
	// atomic too, though it is only set and read with mu held.
	collectorRunning atomic.Bool
	terminate        atomic.Bool

	// shouldCollect is the trigger's shared flag; also read lock-free.
	shouldCollect atomic.Bool

	toZero []Slot
}

func newCoordinator(host Host, log *zap.Logger, trig trigger) *coordinator {
	c := &coordinator{
		host: host,
		log:  log,
		reg:  newRegistry(),
		trig: trig,
		seen: make(map[WorkerID]struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// addWorker is cyclic_add_worker: C3.add_worker.
func (c *coordinator) addWorker(w WorkerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.firstWorkerSet {
		c.firstWorker = w
		c.firstWorkerSet = true
	}
	c.aliveWorkers++
}

// removeWorker is cyclic_remove_worker: C3.remove_worker. It forces a
// collection contribution (rendezvousLocked) to flush w's stack accounting
// before it disappears, then decrements alive_workers — in that order, under
// one critical section, per spec.md §4.3.
func (c *coordinator) removeWorker(w WorkerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldCollect.Store(true)
	c.rendezvousLocked(w)
	c.aliveWorkers--
}

// rendezvous is cyclic_rendezvous: C3.rendezvous. The fast path never blocks
// on mu while a collection is in flight, which is what keeps rendezvous
// calls short even though the engine holds mu for the whole closure walk
// (see engine.go).
func (c *coordinator) rendezvous(w WorkerID) {
	if c.collectorRunning.Load() {
		return
	}
	if !c.trig.checkShouldCollect(c.shouldCollect.Load, c.host.NowMicros, func(tick uint32, nowUs int64) {
		c.mu.Lock()
		c.trig.lastTick.Store(tick)
		c.trig.lastTimestampUs.Store(nowUs)
		c.shouldCollect.Store(true)
		c.mu.Unlock()
	}) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rendezvousLocked(w)
}

// rendezvousLocked is the five-step sequence of spec.md §4.3. Callers must
// hold mu.
func (c *coordinator) rendezvousLocked(w WorkerID) {
	// Step 1 (§C6 Reclaimer): drain to_zero on the calling worker's own
	// goroutine, under the host's normal execution context.
	c.drainToZeroLocked()

	// Step 2.
	if _, ok := c.seen[w]; ok {
		return
	}

	// Step 3: stack roots subtract from the accumulator, since they are
	// external references the engine must not mistake for inner cycle
	// edges (delayed reference counting, spec.md §9).
	c.host.WalkStack(w, func(o ObjectRef) {
		c.reg.increment(o, -1)
	})

	// Step 4.
	c.seen[w] = struct{}{}

	// Step 5.
	if len(c.seen) == c.aliveWorkers {
		c.collectorRunningRequest = true
		c.cond.Signal()
	}
}

func (c *coordinator) drainToZeroLocked() {
	for _, s := range c.toZero {
		s.Clear()
	}
	c.toZero = c.toZero[:0]
}

// addAtomicRoot is cyclic_add_atomic_root: C2.add_root.
func (c *coordinator) addAtomicRoot(o ObjectRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reg.addRoot(o)
}

// removeAtomicRoot is cyclic_remove_atomic_root: C2.remove_root.
func (c *coordinator) removeAtomicRoot(o ObjectRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reg.removeRoot(o)
}

// schedule is cyclic_schedule: sets should_collect directly, bypassing the
// trigger's throttle. Per spec.md §4.4 this only flips the flag; the engine
// is woken the next time a worker's rendezvous pushes seen_workers to
// alive_workers, same as a throttle-triggered collection.
func (c *coordinator) schedule() {
	c.shouldCollect.Store(true)
}
