package collector

import (
	"fmt"
	"sync"

	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"github.com/tangzhangming/cyclicgc/internal/collector/config"
)

// Collector is §C7, the Public Façade: a first-class, constructible value
// rather than ambient global state (spec.md §9's "Global singleton" design
// note explicitly asks for this; the process-wide singleton is layered on
// top in singleton.go for hosts that want the classic cyclic_init/... API).
type Collector struct {
	host  Host
	log   *zap.Logger
	coord *coordinator
	eng   *engine

	closeOnce sync.Once
}

// New constructs a Collector against host and starts its engine goroutine.
// cfg is validated before anything is started.
func New(host Host, cfg config.Config, log *zap.Logger) (*Collector, error) {
	if host == nil {
		return nil, fmt.Errorf("cyclicgc: host must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cyclicgc: invalid config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	trig := newTrigger(cfg.TickThreshold, cfg.ThrottleMicros)
	coord := newCoordinator(host, log, trig)
	eng := newEngine(coord, host, log, cfg.EngineQueueHint)

	c := &Collector{host: host, log: log, coord: coord, eng: eng}
	eng.start()
	return c, nil
}

// Close is cyclic_deinit: signal terminate, join the engine, drain to_zero
// one last time, and release the collector. Replaces the original's
// busy-wait destructor handshake with a goroutine join, per spec.md §9.
func (c *Collector) Close() error {
	c.closeOnce.Do(func() {
		c.coord.mu.Lock()
		c.coord.terminate.Store(true)
		c.coord.cond.Broadcast()
		c.coord.mu.Unlock()

		c.eng.join()

		c.coord.mu.Lock()
		c.coord.drainToZeroLocked()
		c.coord.mu.Unlock()
	})
	return nil
}

// AddWorker is cyclic_add_worker.
func (c *Collector) AddWorker(w WorkerID) { c.coord.addWorker(w) }

// RemoveWorker is cyclic_remove_worker.
func (c *Collector) RemoveWorker(w WorkerID) { c.coord.removeWorker(w) }

// Rendezvous is cyclic_rendezvous.
func (c *Collector) Rendezvous(w WorkerID) { c.coord.rendezvous(w) }

// Schedule is cyclic_schedule.
func (c *Collector) Schedule() { c.coord.schedule() }

// AddAtomicRoot is cyclic_add_atomic_root.
func (c *Collector) AddAtomicRoot(o ObjectRef) { c.coord.addAtomicRoot(o) }

// RemoveAtomicRoot is cyclic_remove_atomic_root.
func (c *Collector) RemoveAtomicRoot(o ObjectRef) { c.coord.removeAtomicRoot(o) }

// Stats returns a snapshot of the engine's observability counters
// (SPEC_FULL.md §12). Safe to call concurrently with rendezvous/engine
// activity; it takes the coordinator lock briefly to read a consistent copy.
func (c *Collector) Stats() EngineStats {
	c.coord.mu.Lock()
	defer c.coord.mu.Unlock()
	return c.eng.stats
}

// StatsJSON encodes Stats() using the segmentio/encoding drop-in json
// replacement, for hosts exposing a debug endpoint.
func (c *Collector) StatsJSON() ([]byte, error) {
	return json.Marshal(c.Stats())
}
