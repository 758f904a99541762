package collector

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// fakeObj is a minimal ObjectRef used across this package's tests: a node in
// a toy reference graph with an atomically-updated refcount and a fixed set
// of outgoing slots.
type fakeObj struct {
	name     string
	atomic   bool
	rc       int32
	outgoing []*fakeSlot
}

func newFakeObj(name string, isAtomic bool, rc int32, numFields int) *fakeObj {
	o := &fakeObj{name: name, atomic: isAtomic, rc: rc}
	o.outgoing = make([]*fakeSlot, numFields)
	for i := range o.outgoing {
		o.outgoing[i] = &fakeSlot{}
	}
	return o
}

func (o *fakeObj) IsAtomicCandidate() bool { return o.atomic }
func (o *fakeObj) RCActual() int32         { return atomic.LoadInt32(&o.rc) }

func (o *fakeObj) ForEachField(visit func(Slot)) {
	for _, s := range o.outgoing {
		visit(s)
	}
}

func (o *fakeObj) addRC(delta int32) { atomic.AddInt32(&o.rc, delta) }

// set points outgoing slot i at target (nil to clear it directly, bypassing
// the collector's own release semantics — used to build test graphs).
func (o *fakeObj) set(i int, target *fakeObj) {
	o.outgoing[i].mu.Lock()
	defer o.outgoing[i].mu.Unlock()
	o.outgoing[i].target = target
}

// fakeSlot is a Slot over a single element of fakeObj.outgoing.
type fakeSlot struct {
	mu     sync.Mutex
	target *fakeObj
}

func (s *fakeSlot) Target() ObjectRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == nil {
		return nil
	}
	return s.target
}

// Clear implements the host's release sequence: drop one strong reference
// from whatever this slot pointed at, then null the slot.
func (s *fakeSlot) Clear() {
	s.mu.Lock()
	t := s.target
	s.target = nil
	s.mu.Unlock()
	if t != nil {
		t.addRC(-1)
	}
}

// fakeHost is a minimal Host: an explicit atomic rootset and per-worker
// stack-root lists, both mutated directly by tests, plus a logical clock that
// advances by 1µs on every read so tests don't depend on real wall-clock
// timing.
type fakeHost struct {
	mu     sync.Mutex
	roots  []*fakeObj
	stacks map[WorkerID][]*fakeObj
	clock  int64
}

func newFakeHost() *fakeHost {
	return &fakeHost{stacks: make(map[WorkerID][]*fakeObj)}
}

func (h *fakeHost) WalkAtomicRoots(visit func(ObjectRef)) {
	h.mu.Lock()
	roots := append([]*fakeObj(nil), h.roots...)
	h.mu.Unlock()
	for _, o := range roots {
		visit(o)
	}
}

func (h *fakeHost) WalkStack(w WorkerID, visit func(ObjectRef)) {
	h.mu.Lock()
	stack := append([]*fakeObj(nil), h.stacks[w]...)
	h.mu.Unlock()
	for _, o := range stack {
		visit(o)
	}
}

func (h *fakeHost) NowMicros() int64 {
	return atomic.AddInt64(&h.clock, 1)
}

func (h *fakeHost) addRoot(o *fakeObj) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.roots = append(h.roots, o)
}

func (h *fakeHost) setStack(w WorkerID, objs ...*fakeObj) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stacks[w] = objs
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
