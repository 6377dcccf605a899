package driver

import (
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/etlkit/logger"
)

// JobReport summarizes one finished job.
type JobReport struct {
	Name       string        `json:"name"`
	Priority   int           `json:"priority"`
	Count      int           `json:"count"`
	Partitions int           `json:"partitions"`
	Batches    int           `json:"batches"`
	Duration   time.Duration `json:"duration"`
	Err        string        `json:"error,omitempty"`
}

// Report summarizes a run.
type Report struct {
	Name     string        `json:"name"`
	Jobs     []JobReport   `json:"jobs"`
	Duration time.Duration `json:"duration"`
}

// Records returns the number of source records over all jobs.
func (r *Report) Records() int {
	n := 0
	for _, j := range r.Jobs {
		n += j.Count
	}
	return n
}

// String renders the report as a table.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d job(s), %d record(s) in %s\n", r.Name, len(r.Jobs), r.Records(), r.Duration.Round(time.Millisecond))
	for _, j := range r.Jobs {
		status := "ok"
		if j.Err != "" {
			status = "failed: " + j.Err
		}
		fmt.Fprintf(&b, "  %3d %-24s records=%-8d partitions=%-5d %8s  %s\n",
			j.Priority, j.Name, j.Count, j.Partitions, j.Duration.Round(time.Millisecond), status)
	}
	return b.String()
}

// Log writes one line per job.
func (r *Report) Log(log *logger.Logger) {
	for _, j := range r.Jobs {
		fields := logger.Fields(
			logger.FieldJob, j.Name,
			"priority", j.Priority,
			"records", j.Count,
			"partitions", j.Partitions,
			logger.FieldDuration, j.Duration.Milliseconds(),
		)
		if j.Err != "" {
			fields[logger.FieldError] = j.Err
			log.Error("job failed", fields)
			continue
		}
		log.Info("job finished", fields)
	}
}
