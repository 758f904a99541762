package collector

import "testing"

func newTestCoordinator() (*coordinator, *fakeHost) {
	host := newFakeHost()
	trig := newTrigger(10, 10_000)
	return newCoordinator(host, testLogger(), trig), host
}

func TestCoordinatorRendezvousLockedDrainsToZero(t *testing.T) {
	c, _ := newTestCoordinator()
	c.addWorker("w1")

	target := newFakeObj("target", false, 1, 0)
	slot := &fakeSlot{target: target}
	c.toZero = append(c.toZero, slot)

	c.mu.Lock()
	c.rendezvousLocked("w1")
	c.mu.Unlock()

	if len(c.toZero) != 0 {
		t.Fatalf("to_zero not drained: len=%d", len(c.toZero))
	}
	if got := target.RCActual(); got != 0 {
		t.Fatalf("target rc after drain = %d, want 0", got)
	}
}

func TestCoordinatorRendezvousLockedIgnoresRepeatWorker(t *testing.T) {
	c, host := newTestCoordinator()
	c.addWorker("w1")
	c.addWorker("w2")

	stackObj := newFakeObj("s", true, 1, 0)
	c.reg.addRoot(stackObj)
	host.setStack("w1", stackObj)

	c.mu.Lock()
	c.rendezvousLocked("w1")
	c.rendezvousLocked("w1") // repeat: must not double-subtract
	c.mu.Unlock()

	if got := c.reg.inner[stackObj]; got != -1 {
		t.Fatalf("accumulator after repeat rendezvous = %d, want -1", got)
	}
}

// I3: |seen_workers| <= alive_workers always.
func TestCoordinatorSeenNeverExceedsAlive(t *testing.T) {
	c, _ := newTestCoordinator()
	c.addWorker("w1")
	c.addWorker("w2")

	c.mu.Lock()
	c.rendezvousLocked("w1")
	c.rendezvousLocked("w2")
	c.mu.Unlock()

	if len(c.seen) > c.aliveWorkers {
		t.Fatalf("|seen|=%d > alive=%d", len(c.seen), c.aliveWorkers)
	}
	if !c.collectorRunningRequest {
		t.Fatalf("collector_running_request not set once all alive workers rendezvoused")
	}
}

func TestCoordinatorRemoveWorkerFlushesContributionBeforeDecrement(t *testing.T) {
	c, host := newTestCoordinator()
	c.addWorker("w1")
	c.addWorker("w2")

	stackObj := newFakeObj("s", true, 1, 0)
	c.reg.addRoot(stackObj)
	host.setStack("w2", stackObj)

	c.removeWorker("w2")

	if c.aliveWorkers != 1 {
		t.Fatalf("aliveWorkers after removeWorker = %d, want 1", c.aliveWorkers)
	}
	if got := c.reg.inner[stackObj]; got != -1 {
		t.Fatalf("w2's stack contribution not applied before decrement: accumulator=%d", got)
	}
}

func TestCoordinatorFirstWorkerRecordedOnce(t *testing.T) {
	c, _ := newTestCoordinator()
	c.addWorker("w1")
	c.addWorker("w2")

	if c.firstWorker != WorkerID("w1") {
		t.Fatalf("firstWorker = %v, want w1", c.firstWorker)
	}
}

func TestCoordinatorAddRemoveAtomicRootRoundTrip(t *testing.T) {
	c, _ := newTestCoordinator()
	o := newFakeObj("a", true, 1, 0)

	c.addAtomicRoot(o)
	if c.reg.len() != 1 {
		t.Fatalf("len after addAtomicRoot = %d, want 1", c.reg.len())
	}

	c.removeAtomicRoot(o)
	if c.reg.len() != 0 {
		t.Fatalf("len after removeAtomicRoot = %d, want 0", c.reg.len())
	}
}
