package engine

import (
	"sync/atomic"
)

// Stats holds run counters the UI can sample while workers are busy. All
// fields are updated atomically; a nil *Stats disables counting.
type Stats struct {
	discovered atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64
	bytesTotal atomic.Int64
	bytesDone  atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Discovered int64
	Completed  int64
	Failed     int64
	BytesTotal int64
	BytesDone  int64
}

func (s *Stats) addDiscovered(size int64) {
	if s == nil {
		return
	}
	s.discovered.Add(1)
	s.bytesTotal.Add(size)
}

func (s *Stats) addCompleted(size int64) {
	if s == nil {
		return
	}
	s.completed.Add(1)
	s.bytesDone.Add(size)
}

func (s *Stats) addFailed() {
	if s == nil {
		return
	}
	s.failed.Add(1)
}

// Snapshot returns the current counter values. Safe on a nil receiver.
func (s *Stats) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{
		Discovered: s.discovered.Load(),
		Completed:  s.completed.Load(),
		Failed:     s.failed.Load(),
		BytesTotal: s.bytesTotal.Load(),
		BytesDone:  s.bytesDone.Load(),
	}
}
