package batch

import "math"

// State is the derived batch view recomputed on every mutation and handed to
// subscribers. It is never maintained separately from the item map.
type State struct {
	Items                  []*Item `json:"items"`
	TotalItems             int     `json:"total_items"`
	CompletedCount         int     `json:"completed_count"`
	FailedCount            int     `json:"failed_count"`
	IsProcessing           bool    `json:"is_processing"`
	OverallProgressPercent int     `json:"overall_progress_percent"`
}

// deriveStateLocked builds a snapshot from the item map. Callers hold m.mu.
func (m *Manager) deriveStateLocked() State {
	items := make([]*Item, 0, len(m.order))
	completed, failed := 0, 0
	for _, id := range m.order {
		it := m.items[id]
		items = append(items, it.clone())
		switch it.Status {
		case StatusComplete:
			completed++
		case StatusError:
			failed++
		}
	}

	overall := 0
	if len(items) > 0 {
		overall = int(math.Round(float64(completed) / float64(len(items)) * 100))
	}

	return State{
		Items:                  items,
		TotalItems:             len(items),
		CompletedCount:         completed,
		FailedCount:            failed,
		IsProcessing:           m.processing,
		OverallProgressPercent: overall,
	}
}
