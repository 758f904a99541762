// Package collector implements an incremental cyclic garbage collector (CCG)
// for shared, mutable-by-atomic-swap objects that form reference cycles a
// plain reference-counted runtime cannot reclaim on its own.
//
// The collector is a pure consumer of a host-supplied object graph: it never
// allocates host objects, never decides field layout, and never walks a
// goroutine stack itself. All of that is expressed by the Host interface
// below, which a runtime embedding this package implements once.
package collector

// ObjectRef is an opaque handle to a host object that may participate in the
// atomic rootset. Implementations are expected to be small, comparable
// values (a pointer or an integer id) since ObjectRef is used as a map key
// throughout the collector.
type ObjectRef interface {
	// IsAtomicCandidate reports whether this object is an atomic-reference
	// cell (AtomicReference/FreezableAtomicReference in the host's terms) —
	// i.e. whether it belongs to the atomic rootset at all.
	IsAtomicCandidate() bool

	// RCActual returns the object's current strong reference count, as
	// tracked by the host's plain reference counter.
	RCActual() int32

	// ForEachField invokes visit once for every outgoing reference slot:
	// array elements for array objects, declared reference offsets
	// otherwise. Implementations must visit each slot exactly once and must
	// not allocate.
	ForEachField(visit func(Slot))
}

// Slot is the address of a single outgoing reference slot inside a host
// object.
type Slot interface {
	// Target returns the object this slot currently references, or nil if
	// the slot is empty. Used by the closure walk (engine.go) to follow
	// edges out of the atomic rootset.
	Target() ObjectRef

	// Clear atomically stores the null reference into the slot, running the
	// host's standard release sequence (which may itself drop the last
	// strong reference to whatever the slot pointed at, cascading further
	// releases or finalizers).
	Clear()
}

// WorkerID is an opaque identity token for a runtime thread participating in
// the collector. Implementations must be comparable, since WorkerID is used
// as a map key.
type WorkerID any

// Host groups the collaborators the collector consumes from the embedding
// runtime: the two root-enumeration walks and a monotonic clock. Object
// inspection and mutation (host_refcount, host_clear_reference, ...) live on
// ObjectRef and Slot instead, since Go favors small interfaces implemented by
// the value they describe over free functions keyed by an opaque handle.
type Host interface {
	// WalkAtomicRoots invokes visit once for every currently live
	// atomic-reference object. The per-object lock of every such object must
	// be held by the host for the duration of this call, freezing the
	// topology of the closure reachable from the rootset until the call
	// returns.
	WalkAtomicRoots(visit func(ObjectRef))

	// WalkStack invokes visit once for every stack root of the given
	// (current) worker.
	WalkStack(worker WorkerID, visit func(ObjectRef))

	// NowMicros returns a monotonic microsecond timestamp.
	NowMicros() int64
}
