// Package pagination tracks incremental loading of one category's rows.
//
// The tracker is a small state machine: Idle -> Loading -> Loaded ->
// LoadingMore -> Loaded. A failed load returns to the prior stable
// state without discarding already-loaded rows, and load-more is a
// no-op while a load is in flight or when no more rows exist.
package pagination

import (
	"sync"

	"sellerqi-insights/internal/models"
)

// Phase is the tracker's lifecycle state.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseLoading     Phase = "loading"
	PhaseLoaded      Phase = "loaded"
	PhaseLoadingMore Phase = "loading_more"
)

// Tracker manages pagination for one category. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	phase   Phase
	limit   int
	page    int
	total   int
	rows    []models.IssueRow
	lastErr error
}

// NewTracker returns an idle tracker with the given page limit.
func NewTracker(limit int) *Tracker {
	return &Tracker{phase: PhaseIdle, limit: limit}
}

// BeginLoad transitions Idle -> Loading. It returns false (and must
// cause no fetch) when a load is already in flight or rows are already
// loaded; use Reset first when switching filters.
func (t *Tracker) BeginLoad() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseIdle {
		return false
	}
	t.phase = PhaseLoading
	return true
}

// BeginLoadMore transitions Loaded -> LoadingMore. It returns false
// (and must not fire a redundant request) when no more rows exist or a
// load is already in flight.
func (t *Tracker) BeginLoadMore() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseLoaded || !t.hasMoreLocked() {
		return false
	}
	t.phase = PhaseLoadingMore
	return true
}

// CompleteLoad finishes the initial load, replacing the row set.
func (t *Tracker) CompleteLoad(rows []models.IssueRow, page, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseLoading {
		return
	}
	t.rows = append([]models.IssueRow(nil), rows...)
	t.page = page
	t.total = total
	t.lastErr = nil
	t.phase = PhaseLoaded
}

// CompleteLoadMore appends the next page's rows in response order. The
// tracker performs no deduplication; the upstream contract is strictly
// paginated, non-overlapping slices.
func (t *Tracker) CompleteLoadMore(rows []models.IssueRow, page, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseLoadingMore {
		return
	}
	t.rows = append(t.rows, rows...)
	t.page = page
	t.total = total
	t.lastErr = nil
	t.phase = PhaseLoaded
}

// Fail records the error and returns to the prior stable state, keeping
// any rows that were already loaded.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.phase {
	case PhaseLoading:
		t.phase = PhaseIdle
	case PhaseLoadingMore:
		t.phase = PhaseLoaded
	}
	t.lastErr = err
}

// Reset returns the tracker to page 1 semantics: the next successful
// load replaces, not appends. Used when the filter or category changes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.phase = PhaseIdle
	t.page = 0
	t.total = 0
	t.rows = nil
	t.lastErr = nil
}

// Rows returns a snapshot copy of the loaded rows.
func (t *Tracker) Rows() []models.IssueRow {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]models.IssueRow(nil), t.rows...)
}

// State returns the current pagination state. HasMore is recomputed
// from the loaded row count after every successful load.
func (t *Tracker) State() models.PaginationState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return models.PaginationState{
		Page:    t.page,
		Limit:   t.limit,
		Total:   t.total,
		HasMore: t.hasMoreLocked(),
	}
}

// Phase returns the current lifecycle phase.
func (t *Tracker) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Err returns the most recent load error, if any.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// NextPage returns the page number a load-more request should fetch.
func (t *Tracker) NextPage() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.page + 1
}

func (t *Tracker) hasMoreLocked() bool {
	return len(t.rows) < t.total
}
