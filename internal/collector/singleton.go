package collector

import (
	"sync"

	"go.uber.org/zap"

	"github.com/tangzhangming/cyclicgc/internal/collector/config"
)

// singletonMu guards the process-wide collector instance. The original
// design is a single global pointer with no synchronization at all, relying
// on the convention that Init/Deinit are only ever called from the runtime's
// single bootstrap/shutdown thread; we keep that convention but still guard
// the pointer so a misuse (double Init from two goroutines) fails with a
// clean fatalAssert instead of a data race.
var (
	singletonMu sync.Mutex
	singleton   *Collector
)

// Init is cyclic_init: construct the process-wide singleton and start its
// engine goroutine. Fails (fatalAssert) if already inited.
func Init(host Host, cfg config.Config, log *zap.Logger) {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	fatalAssert(log, singleton == nil, "cyclic collector already inited")

	c, err := New(host, cfg, log)
	fatalAssert(log, err == nil, "cyclic collector init failed", zap.Error(err))
	singleton = c
}

// Deinit is cyclic_deinit: signal terminate, join the engine, drain to_zero,
// and destroy the singleton. Fails (fatalAssert) if not inited.
func Deinit() {
	singletonMu.Lock()
	c := singleton
	singleton = nil
	singletonMu.Unlock()

	fatalAssert(nil, c != nil, "cyclic collector must be inited")
	_ = c.Close()
}

func instance() *Collector {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	fatalAssert(nil, singleton != nil, "cyclic collector must be inited")
	return singleton
}

// AddWorker is cyclic_add_worker on the process-wide singleton.
func AddWorker(w WorkerID) { instance().AddWorker(w) }

// RemoveWorker is cyclic_remove_worker on the process-wide singleton.
func RemoveWorker(w WorkerID) { instance().RemoveWorker(w) }

// Rendezvous is cyclic_rendezvous on the process-wide singleton.
func Rendezvous(w WorkerID) { instance().Rendezvous(w) }

// Schedule is cyclic_schedule on the process-wide singleton.
func Schedule() { instance().Schedule() }

// AddAtomicRoot is cyclic_add_atomic_root on the process-wide singleton.
func AddAtomicRoot(o ObjectRef) { instance().AddAtomicRoot(o) }

// RemoveAtomicRoot is cyclic_remove_atomic_root on the process-wide
// singleton.
func RemoveAtomicRoot(o ObjectRef) { instance().RemoveAtomicRoot(o) }
