package bus

import (
	"time"

	"go.uber.org/zap"
)

type Statistics struct {
	RunTime       time.Duration
	PostCount     uint64
	PostFails     uint64
	DispatchCount uint64
	DispatchFails uint64
	LoopCycles    uint64
}

// Statistics returns a snapshot of the router counters. Meaningful once the
// Exec or ExecLoop goroutine has finished.
func (r *Router) Statistics() Statistics {
	return Statistics{
		RunTime:       r.runTime,
		PostCount:     r.postCount.Load(),
		PostFails:     r.postFails.Load(),
		DispatchCount: r.dispatchCount.Load(),
		DispatchFails: r.dispatchFails.Load(),
		LoopCycles:    r.loopCycles.Load(),
	}
}

func (r *Router) PrintStatistics() {
	s := r.Statistics()
	r.logger.Info("router statistics",
		zap.Duration("run_time", s.RunTime),
		zap.Uint64("post_count", s.PostCount),
		zap.Uint64("post_fails", s.PostFails),
		zap.Uint64("dispatch_count", s.DispatchCount),
		zap.Uint64("dispatch_fails", s.DispatchFails),
		zap.Uint64("loop_cycles", s.LoopCycles))
}
