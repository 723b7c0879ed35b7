// Package stats aggregates a task snapshot for the dashboard.
package stats

import (
	"fmt"

	"github.com/nhle/sprintsync/internal/model"
)

// Summary is the dashboard's quick-stats block.
type Summary struct {
	Total        int
	ByStatus     map[model.Status]int
	TotalMinutes int
	// Provisional counts tasks not yet confirmed by the server.
	Provisional int
}

// Summarize counts tasks per status and sums tracked time.
func Summarize(tasks []model.Task) Summary {
	s := Summary{ByStatus: make(map[model.Status]int, len(model.Statuses))}
	for _, st := range model.Statuses {
		s.ByStatus[st] = 0
	}

	for _, t := range tasks {
		s.Total++
		s.ByStatus[t.Status]++
		s.TotalMinutes += t.TotalMinutes
		if t.IsProvisional() {
			s.Provisional++
		}
	}
	return s
}

// Completion returns the share of done tasks in [0, 1].
func (s Summary) Completion() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.ByStatus[model.StatusDone]) / float64(s.Total)
}

// FormatMinutes renders a duration such as "2h 05m" or "45m".
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

// GroupByStatus splits tasks into board columns, keeping snapshot order
// within each column.
func GroupByStatus(tasks []model.Task) map[model.Status][]model.Task {
	cols := make(map[model.Status][]model.Task, len(model.Statuses))
	for _, t := range tasks {
		cols[t.Status] = append(cols[t.Status], t)
	}
	return cols
}
