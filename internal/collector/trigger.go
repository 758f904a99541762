package collector

import "go.uber.org/atomic"

// trigger is §C4: decides, on every rendezvous, whether a collection cycle
// should begin. It is a lock-free fast path in the common case — only the
// rare branch where the tick budget is exhausted AND the wall-clock throttle
// has elapsed touches the coordinator's mutex, and only to flip the shared
// should_collect flag alongside its own bookkeeping as one atomic update.
//
// Grounded on the original CyclicCollector::checkIfShallCollectLocked, with
// the "under lock" scope narrowed from "the whole function" to "the branch
// that actually mutates shared throttle state", per spec.md §4.4's framing
// of this as a "lock-free fast path".
type trigger struct {
	currentTick     atomic.Uint32
	lastTick        atomic.Uint32
	lastTimestampUs atomic.Int64

	tickThreshold  uint32
	throttleMicros int64
}

func newTrigger(tickThreshold uint32, throttleMicros int64) trigger {
	return trigger{
		tickThreshold:  tickThreshold,
		throttleMicros: throttleMicros,
	}
}

// checkShouldCollect implements spec.md §4.4 steps 1-4. nowMicros is the
// host's monotonic clock (step 4's wall_clock_us read); onThrottleElapsed is
// invoked without any lock held, and the caller's callback takes the
// coordinator's mutex itself to flip should_collect and refresh
// lastTick/lastTimestampUs together as spec.md directs. Until the first
// trigger-initiated collection (lastTimestampUs still zero) the throttle does
// not apply, so the first tick-threshold crossing fires.
//
// Go's unsigned tick counter subsumes the original's explicit "delta < 0"
// signed-wraparound check: unsigned subtraction yields the true forward
// distance even when currentTick has wrapped past zero, and a lastTick ahead
// of tick (stored by a racing caller) yields a very large delta, which
// delta > tickThreshold already catches.
func (t *trigger) checkShouldCollect(alreadyShould func() bool, nowMicros func() int64, onThrottleElapsed func(tick uint32, nowUs int64)) bool {
	tick := t.currentTick.Add(1)

	if alreadyShould() {
		return true
	}

	delta := tick - t.lastTick.Load()
	if delta <= t.tickThreshold {
		return false
	}

	now := nowMicros()
	if last := t.lastTimestampUs.Load(); last != 0 && now-last <= t.throttleMicros {
		return false
	}

	onThrottleElapsed(tick, now)
	return true
}
