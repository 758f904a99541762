package collector

import (
	"sync"

	"go.uber.org/zap"
)

// EngineStats is the collector's JSON-exportable debug/observability
// surface, supplementing the spec with counters the original Kotlin/Native
// implementation only ever printed to the console (see SPEC_FULL.md §12).
type EngineStats struct {
	CyclesRun          int64 `json:"cycles_run"`
	ObjectsWalked      int64 `json:"objects_walked"`
	RootsReclaimed     int64 `json:"roots_reclaimed"`
	SlotsZeroedTotal   int64 `json:"slots_zeroed_total"`
	StaleRCSkips       int64 `json:"stale_rc_skips"`
	LastCycleRCDelta   int64 `json:"last_cycle_rc_delta"`
	RootsWalkPasses    int64 `json:"roots_walk_passes"`
	GarbageIdentPasses int64 `json:"garbage_ident_passes"`
}

// objColor is the tri-color state the closure walk assigns to each
// atomic-candidate object reached during a cycle, per the classic
// Bacon-Rajan synchronous cycle collection algorithm: gray while still
// under consideration, white if its own incoming references are all
// internal to the walked closure (a garbage candidate), black once some
// surviving external reference is found to reach it (restoring it and
// everything reachable from it).
type objColor uint8

const (
	colorUnmarked objColor = iota
	colorGray
	colorWhite
	colorBlack
)

// engine is §C5: the dedicated goroutine that repopulates the atomic
// rootset, walks its transitive closure, and identifies garbage cycles.
//
// Grounded on the teacher's background coordinator/bgWorker goroutines in
// internal/vm/gc_concurrent.go (a dedicated goroutine signaled through a
// mutex+cond rather than a channel, since the wakeup condition here is a
// multi-worker rendezvous barrier, not a simple work queue) and on the BFS
// worklist pattern of internal/vm/gc.go's grayList mark phase, generalized
// from tri-color tracing liveness to tri-color trial-deletion cycle
// detection: the literal spec.md §4.5 "increment inner count, compare to
// rc_actual" procedure alone only detects a dead *root*; it misidentifies a
// cycle member as garbage whenever another member of the same cycle is kept
// alive by a reference from outside the closure (spec.md §8 scenario 2).
// Resolving that requires the classic MarkGray/Scan/ScanBlack restoration
// pass, which is what the bulk of this file implements, on top of the exact
// Registry accumulator spec.md §4.2/§4.5 describe.
type engine struct {
	coord *coordinator
	host  Host
	log   *zap.Logger
	stats EngineStats

	queueHint int

	wg sync.WaitGroup
}

func newEngine(coord *coordinator, host Host, log *zap.Logger, queueHint int) *engine {
	return &engine{coord: coord, host: host, log: log, queueHint: queueHint}
}

func (e *engine) start() {
	e.wg.Add(1)
	go e.run()
}

func (e *engine) join() {
	e.wg.Wait()
}

// run is the engine thread loop of spec.md §4.5 steps 1-4 and 9; the body of
// the cycle (steps 5-8) lives in runCycleLocked.
func (e *engine) run() {
	defer e.wg.Done()

	for {
		e.coord.mu.Lock()

		// Step 2.
		for !e.coord.terminate.Load() && !e.coord.collectorRunningRequest {
			e.coord.cond.Wait()
		}

		// Step 3.
		if e.coord.terminate.Load() {
			e.coord.mu.Unlock()
			return
		}

		// Step 4.
		e.coord.collectorRunning.Store(true)
		for w := range e.coord.seen {
			delete(e.coord.seen, w)
		}

		e.runCycleLocked()

		// Step 9.
		e.coord.collectorRunning.Store(false)
		e.coord.collectorRunningRequest = false
		e.coord.shouldCollect.Store(false)

		e.coord.mu.Unlock()
	}
}

// runCycleLocked performs spec.md §4.5 steps 5-8. The caller must hold
// e.coord.mu; per spec.md's component description this lock stays held for
// the entire walk, freezing the registry and seen_workers against worker
// mutation while the host's atomic-reference per-object locks (acquired by
// WalkAtomicRoots for its own duration) freeze the closure's topology.
func (e *engine) runCycleLocked() {
	e.stats.CyclesRun++
	e.stats.RootsWalkPasses++
	e.stats.LastCycleRCDelta = 0

	// Step 5: repopulate rootset.
	var rootset []ObjectRef
	e.host.WalkAtomicRoots(func(o ObjectRef) {
		fatalAssert(e.log, o.IsAtomicCandidate(), "atomic roots walk yielded a non-atomic-candidate object")
		rootset = append(rootset, o)
	})

	rcSnapshot := make(map[ObjectRef]int32, len(rootset))
	for _, r := range rootset {
		rcSnapshot[r] = r.RCActual()
	}

	color := make(map[ObjectRef]objColor, e.queueHint)

	// Step 6: closure walk, accumulating the inner-reference count in the
	// Registry exactly as spec.md §4.2/§4.5 describe (registry.increment is
	// the same call the rendezvous stack-walk already uses to apply its
	// negative, delayed-reference-counting contribution).
	var markGray func(o ObjectRef)
	markGray = func(o ObjectRef) {
		if o.IsAtomicCandidate() {
			e.coord.reg.increment(o, 1)
		}
		if color[o] != colorUnmarked {
			return
		}
		color[o] = colorGray
		e.stats.ObjectsWalked++
		o.ForEachField(func(s Slot) {
			if t := s.Target(); t != nil {
				markGray(t)
			}
		})
	}

	for _, r := range rootset {
		if color[r] != colorUnmarked {
			continue
		}
		color[r] = colorGray
		e.stats.ObjectsWalked++
		r.ForEachField(func(s Slot) {
			if t := s.Target(); t != nil {
				markGray(t)
			}
		})
	}

	// nextCandidates walks past non-atomic (frozen/immutable) pass-through
	// objects to find the atomic-candidate objects reachable from o, for the
	// restoration pass below. Non-candidates carry no inner-count
	// bookkeeping of their own (spec.md §1: reclaiming them is the plain
	// RC's job, via cascading release once whatever candidate holds them is
	// zeroed — spec.md §8 scenario 3).
	nextCandidates := func(o ObjectRef, fn func(ObjectRef)) {
		seen := make(map[ObjectRef]struct{})
		var walk func(ObjectRef)
		walk = func(x ObjectRef) {
			if _, ok := seen[x]; ok {
				return
			}
			seen[x] = struct{}{}
			x.ForEachField(func(s Slot) {
				t := s.Target()
				if t == nil {
					return
				}
				if t.IsAtomicCandidate() {
					fn(t)
				} else {
					walk(t)
				}
			})
		}
		walk(o)
	}

	// Scan/ScanBlack: restore (and transitively propagate) liveness for any
	// object whose inner count, read against its *current* rc_actual, does
	// not show every incoming reference as internal — i.e. something from
	// outside the closure still reaches it. A scan-black may retroactively
	// flip an already-white object back to black, which is why the garbage
	// decision (below) only happens after every root has been scanned.
	var scan, scanBlack func(o ObjectRef)

	scan = func(o ObjectRef) {
		if color[o] != colorGray {
			return
		}
		if e.coord.reg.inner[o] != o.RCActual() {
			scanBlack(o)
			return
		}
		color[o] = colorWhite
		nextCandidates(o, scan)
	}

	scanBlack = func(o ObjectRef) {
		color[o] = colorBlack
		nextCandidates(o, func(c ObjectRef) {
			e.coord.reg.increment(c, -1)
			if color[c] != colorBlack {
				scanBlack(c)
			}
		})
	}

	for _, r := range rootset {
		scan(r)
	}

	// Step 7: garbage identification. Every root left white has had every
	// incoming strong reference accounted for from inside the walked
	// closure — spec.md invariant I2's "inner(o) == rc_actual(o)" — at the
	// instant of this comparison.
	e.stats.GarbageIdentPasses++
	for _, o := range rootset {
		rcChanged := false
		if before, ok := rcSnapshot[o]; ok && before != o.RCActual() {
			e.stats.LastCycleRCDelta++
			rcChanged = true
		}

		if color[o] != colorWhite {
			if rcChanged {
				e.stats.StaleRCSkips++
			}
			continue
		}

		e.stats.RootsReclaimed++
		o.ForEachField(func(s Slot) {
			e.coord.toZero = append(e.coord.toZero, s)
			e.stats.SlotsZeroedTotal++
		})
	}

	// Step 8.
	e.coord.reg.clear()
}
