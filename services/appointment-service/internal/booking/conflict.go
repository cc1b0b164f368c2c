package booking

import (
	"context"
	"time"
)

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Back-to-back slots (one ending exactly when the
// other starts) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// OverlapSource counts approved appointments for an employee whose interval
// intersects [start, end), ignoring excludeID when non-zero.
type OverlapSource interface {
	CountApprovedOverlapping(ctx context.Context, employeeID string, start, end time.Time, excludeID int64) (int64, error)
}

// ConflictChecker is the advisory double-booking check. Only approved
// appointments block a slot; pending and rejected ones never do. Concurrent
// writers are caught by the exclusion constraint on the citas table, which
// stays the source of truth.
type ConflictChecker struct {
	src OverlapSource
}

func NewConflictChecker(src OverlapSource) *ConflictChecker {
	return &ConflictChecker{src: src}
}

// HasConflict reports whether booking [start, end) for employeeID would
// collide with an existing approved appointment. excludeID skips the
// appointment being re-reviewed so it does not conflict with itself.
func (c *ConflictChecker) HasConflict(ctx context.Context, employeeID string, start, end time.Time, excludeID int64) (bool, error) {
	n, err := c.src.CountApprovedOverlapping(ctx, employeeID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
