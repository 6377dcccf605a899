package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kbukum/etlkit/config"
)

func jobs() []config.JobConfig {
	off := false
	return []config.JobConfig{
		{Name: "orders", Priority: 3, Tag: "sales"},
		{Name: "partners", Priority: 1, Tag: "crm"},
		{Name: "legacy", Priority: 2, Tag: "crm", Active: &off},
		{Name: "contacts", Priority: 2, Tag: "crm"},
		{Name: "invoices", Priority: 3, Tag: "sales"},
	}
}

func names(js []config.JobConfig) []string {
	out := make([]string, len(js))
	for i, j := range js {
		out[i] = j.Name
	}
	return out
}

func TestSelection_Apply(t *testing.T) {
	tests := []struct {
		name string
		sel  Selection
		want []string
	}{
		{"all active by priority", Selection{}, []string{"partners", "contacts", "orders", "invoices"}},
		{"range", Selection{Start: 2, Stop: 2}, []string{"contacts"}},
		{"open upper bound", Selection{Start: 3}, []string{"orders", "invoices"}},
		{"select overrides range", Selection{Start: 3, Select: []int{1, 2}}, []string{"partners", "contacts"}},
		{"tags", Selection{Tags: []string{"sales"}}, []string{"orders", "invoices"}},
		{"tags and range", Selection{Stop: 2, Tags: []string{"crm"}}, []string{"partners", "contacts"}},
		{"nothing", Selection{Select: []int{9}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(tt.sel.Apply(jobs())))
		})
	}
}

func TestReport(t *testing.T) {
	r := &Report{Name: "run", Jobs: []JobReport{
		{Name: "a", Priority: 1, Count: 3, Partitions: 1},
		{Name: "b", Priority: 2, Count: 4, Partitions: 2, Err: "boom"},
	}}
	assert.Equal(t, 7, r.Records())
	out := r.String()
	assert.Contains(t, out, "run: 2 job(s), 7 record(s)")
	assert.Contains(t, out, "failed: boom")
}
