package scan

import (
	"sync/atomic"
	"time"
)

// Stats accumulates counters for one scan run. Counters are updated
// from concurrent scan workers, so all increments go through atomics.
type Stats struct {
	filesScanned  int64
	filesSkipped  int64
	linesScanned  int64
	totalFindings int64

	ScanStartTime time.Time
	ScanEndTime   time.Time
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) IncrFilesScanned() { atomic.AddInt64(&s.filesScanned, 1) }

func (s *Stats) IncrFilesSkipped() { atomic.AddInt64(&s.filesSkipped, 1) }

func (s *Stats) AddLinesScanned(n int64) { atomic.AddInt64(&s.linesScanned, n) }

func (s *Stats) AddFindings(n int64) { atomic.AddInt64(&s.totalFindings, n) }

func (s *Stats) FilesScanned() int64 { return atomic.LoadInt64(&s.filesScanned) }

func (s *Stats) FilesSkipped() int64 { return atomic.LoadInt64(&s.filesSkipped) }

func (s *Stats) LinesScanned() int64 { return atomic.LoadInt64(&s.linesScanned) }

func (s *Stats) TotalFindings() int64 { return atomic.LoadInt64(&s.totalFindings) }

func (s *Stats) Duration() time.Duration {
	if s.ScanStartTime.IsZero() || s.ScanEndTime.IsZero() {
		return 0
	}
	return s.ScanEndTime.Sub(s.ScanStartTime)
}
