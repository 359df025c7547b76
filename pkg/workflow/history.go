package workflow

import (
	"sort"
	"sync"

	"github.com/weave-nn/weave/pkg/models"
)

// HistoryFilter selects finished executions. Zero values match everything.
type HistoryFilter struct {
	WorkflowID string
	Status     models.ExecutionStatus

	// SortOrder is "asc" or "desc" over StartedAt. Default is descending
	// (most recent first).
	SortOrder string

	Offset int
	Limit  int
}

// History is the append-only record of finished executions. Records are
// immutable once appended; reads and appends are safe from concurrent
// executions.
type History struct {
	mu      sync.RWMutex
	records []*models.WorkflowExecution
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Append adds a finished execution record.
func (h *History) Append(execution *models.WorkflowExecution) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, execution)
}

// List returns records matching the filter, sorted by StartedAt and
// paginated by Offset/Limit.
func (h *History) List(filter HistoryFilter) []*models.WorkflowExecution {
	h.mu.RLock()

	matched := make([]*models.WorkflowExecution, 0, len(h.records))

	for _, record := range h.records {
		if filter.WorkflowID != "" && record.WorkflowID != filter.WorkflowID {
			continue
		}

		if filter.Status != "" && record.Status != filter.Status {
			continue
		}

		matched = append(matched, record)
	}

	h.mu.RUnlock()

	ascending := filter.SortOrder == "asc"
	sort.SliceStable(matched, func(i, j int) bool {
		if ascending {
			return matched[i].StartedAt.Before(matched[j].StartedAt)
		}

		return matched[j].StartedAt.Before(matched[i].StartedAt)
	})

	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if filter.Offset >= len(matched) {
		return []*models.WorkflowExecution{}
	}

	matched = matched[filter.Offset:]

	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	return matched
}

// Clear drops every record.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = nil
}

// Len returns the number of stored records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.records)
}
