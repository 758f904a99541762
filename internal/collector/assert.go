package collector

import "go.uber.org/zap"

// fatalAssert reports an invariant violation: a programming error such as a
// double Init, use of the singleton without Init, or a non-atomic-candidate
// object yielded by the atomic-roots walk. Removing an unregistered worker
// and calling a closed Collector are not checked. These are never
// recoverable runtime conditions — per spec.md §7 the engine must not
// propagate them to workers, it aborts.
//
// Grounded on the teacher's bare panic("goroutine stack overflow") idiom
// (internal/vm/goroutine.go), generalized to log a structured record first so
// a host's crash handler still has something to report before the process
// dies.
func fatalAssert(log *zap.Logger, cond bool, msg string, fields ...zap.Field) {
	if cond {
		return
	}
	if log != nil {
		log.Error(msg, fields...)
	}
	panic("cyclicgc: " + msg)
}
