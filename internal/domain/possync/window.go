package possync

import (
	"fmt"
	"time"
)

const (
	// syncLookback is subtracted from last_sync_time when resolving an
	// incremental window: 24h tolerance for late upstream corrections plus
	// 1h safety margin around midnight boundaries.
	syncLookback = 25 * time.Hour

	// initialBackfillDays is the window depth for a connection that has
	// never synced.
	initialBackfillDays = 90
)

// ---------------------------------------------------------------------------
// SyncWindow
// ---------------------------------------------------------------------------

// SyncWindow is an inclusive, date-granular range scoping one sync run.
// Both bounds are truncated to midnight UTC.
type SyncWindow struct {
	StartDate time.Time
	EndDate   time.Time
}

// NewSyncWindow creates a window from inclusive bounds. Times are truncated
// to their date. Returns ErrInvalidWindow when start is after end.
func NewSyncWindow(start, end time.Time) (SyncWindow, error) {
	w := SyncWindow{
		StartDate: DateOf(start),
		EndDate:   DateOf(end),
	}
	if w.StartDate.After(w.EndDate) {
		return SyncWindow{}, fmt.Errorf("%w: start %s after end %s",
			ErrInvalidWindow, w.StartDate.Format("2006-01-02"), w.EndDate.Format("2006-01-02"))
	}
	return w, nil
}

// DateOf truncates a timestamp to its UTC date
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Contains reports whether the date falls inside the window (inclusive)
func (w SyncWindow) Contains(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(w.StartDate) && !d.After(w.EndDate)
}

// Dates returns every date in the window in ascending order
func (w SyncWindow) Dates() []time.Time {
	var dates []time.Time
	for d := w.StartDate; !d.After(w.EndDate); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Days returns the number of dates in the window
func (w SyncWindow) Days() int {
	return int(w.EndDate.Sub(w.StartDate).Hours()/24) + 1
}

// String returns "start..end" in ISO date form
func (w SyncWindow) String() string {
	return w.StartDate.Format("2006-01-02") + ".." + w.EndDate.Format("2006-01-02")
}

// ---------------------------------------------------------------------------
// Window Resolution
// ---------------------------------------------------------------------------

// ResolveWindow derives the date range a scoped sync should cover for a
// connection, as of now.
//
// With a recorded last sync the window is [last_sync − 25h, today]: the
// lookback re-covers upstream data that was delayed or corrected after the
// fact. With no recorded sync (new connection) the window is the 90-day
// initial backfill.
//
// A malformed last_sync_time (in the future) yields the backfill window
// together with ErrWindowComputation; the fallback window is always valid
// and callers treat the error as non-fatal.
func ResolveWindow(conn *POSConnection, now time.Time) (SyncWindow, error) {
	today := DateOf(now)

	backfill := SyncWindow{
		StartDate: today.AddDate(0, 0, -initialBackfillDays),
		EndDate:   today,
	}

	if conn.LastSyncTime == nil {
		return backfill, nil
	}

	last := conn.LastSyncTime.UTC()
	if last.After(now.UTC()) {
		return backfill, fmt.Errorf("%w: last_sync_time %s is in the future",
			ErrWindowComputation, last.Format(time.RFC3339))
	}

	start := DateOf(last.Add(-syncLookback))
	if start.After(today) {
		start = today
	}
	return SyncWindow{StartDate: start, EndDate: today}, nil
}
