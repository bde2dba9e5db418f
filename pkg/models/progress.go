package models

import (
	"time"
)

// OperationProgress is the live progress of a file operation.
// It is owned by the operation and read-only to presentation.
type OperationProgress struct {
	Kind           OperationKind
	CurrentItem    string
	ItemsDone      int
	ItemsTotal     int
	BytesDone      int64
	BytesTotal     int64
	StartTime      time.Time
	ItemsProcessed int
	ItemsFailed    int
}

// Reset zeroes the counters and restarts the clock
func (p *OperationProgress) Reset(itemsTotal int, bytesTotal int64) {
	p.CurrentItem = ""
	p.ItemsDone = 0
	p.ItemsTotal = itemsTotal
	p.BytesDone = 0
	p.BytesTotal = bytesTotal
	p.ItemsProcessed = 0
	p.ItemsFailed = 0
	p.StartTime = time.Now()
}

// Percentage returns completion in the range 0-100.
// Bytes drive the figure when a byte total is known, items otherwise.
func (p OperationProgress) Percentage() int {
	if p.BytesTotal == 0 {
		if p.ItemsTotal == 0 {
			return 100
		}
		return clampPercent(float64(p.ItemsDone) / float64(p.ItemsTotal) * 100)
	}
	return clampPercent(float64(p.BytesDone) / float64(p.BytesTotal) * 100)
}

// Elapsed returns the time since processing started
func (p OperationProgress) Elapsed() time.Duration {
	if p.StartTime.IsZero() {
		return 0
	}
	return time.Since(p.StartTime)
}

// ETA estimates the remaining time from the average rate so far.
// It returns 0 until there is enough data to estimate.
func (p OperationProgress) ETA() time.Duration {
	elapsed := p.Elapsed()
	if elapsed <= 0 {
		return 0
	}
	var done, total float64
	if p.BytesTotal > 0 {
		done, total = float64(p.BytesDone), float64(p.BytesTotal)
	} else {
		done, total = float64(p.ItemsDone), float64(p.ItemsTotal)
	}
	if done <= 0 || done >= total {
		return 0
	}
	rate := done / elapsed.Seconds()
	return time.Duration((total - done) / rate * float64(time.Second))
}

func clampPercent(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}
