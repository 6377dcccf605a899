package driver

import (
	"slices"

	"github.com/kbukum/etlkit/config"
)

// Selection narrows the jobs of a file. Inactive jobs never run.
type Selection struct {
	// Start and Stop bound job priorities, inclusive. A zero Stop means no
	// upper bound.
	Start int
	Stop  int
	// Select lists the priorities to run. It overrides Start and Stop.
	Select []int
	// Tags keeps jobs whose tag is listed.
	Tags []string
}

// Match reports whether j is selected.
func (s Selection) Match(j *config.JobConfig) bool {
	if !j.IsActive() {
		return false
	}
	if len(s.Select) > 0 {
		if !slices.Contains(s.Select, j.Priority) {
			return false
		}
	} else {
		if j.Priority < s.Start {
			return false
		}
		if s.Stop > 0 && j.Priority > s.Stop {
			return false
		}
	}
	if len(s.Tags) > 0 && !slices.Contains(s.Tags, j.Tag) {
		return false
	}
	return true
}

// Apply returns the selected jobs ordered by ascending priority. Jobs of
// equal priority keep file order.
func (s Selection) Apply(jobs []config.JobConfig) []config.JobConfig {
	out := make([]config.JobConfig, 0, len(jobs))
	for i := range jobs {
		if s.Match(&jobs[i]) {
			out = append(out, jobs[i])
		}
	}
	slices.SortStableFunc(out, func(a, b config.JobConfig) int {
		return a.Priority - b.Priority
	})
	return out
}
