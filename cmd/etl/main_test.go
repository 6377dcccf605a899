package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobFile = `
name: copy-partners
logging: {level: info, format: json}
connectors:
  src: {type: csv, params: {path: "{{dir}}/in.csv"}}
  dst: {type: csv, params: {path: "{{dir}}/out.csv"}}
jobs:
  - name: partners
    priority: 1
    limit: 2
    threads: 2
    tag: crm
    extract:   {type: csv, source: src}
    transform: {type: mapping, source: src, destination: dst, params: {fields: {id: id, name: partner}}}
    load:      {type: csv, destination: dst}
  - name: audit
    priority: 5
    tag: audit
    extract: {type: csv, source: src}
    load:    {type: csv, destination: dst}
`

func writeJob(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.csv"), []byte("id,name\n1,Acme\n2,Globex\n3,Initech\n"), 0o644))
	path := filepath.Join(dir, "etl.yaml")
	body := strings.ReplaceAll(jobFile, "{{dir}}", filepath.ToSlash(dir))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return dir
}

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer
	o, err := parseFlags([]string{"-c", "jobs.yaml", "--select", "1,3", "--tags", "a,b", "--status-addr", ":9090"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "jobs.yaml", o.configFile)
	assert.Equal(t, []int{1, 3}, o.selection.Select)
	assert.Equal(t, []string{"a", "b"}, o.selection.Tags)
	assert.Equal(t, ":9090", o.statusAddr)

	o, err = parseFlags([]string{"--config=jobs.yaml", "--start", "2", "--stop", "4"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, 2, o.selection.Start)
	assert.Equal(t, 4, o.selection.Stop)
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing config", nil, "--config is required"},
		{"select with range", []string{"-c", "x", "--select", "1", "--start", "1"}, "cannot be combined"},
		{"inverted range", []string{"-c", "x", "--start", "5", "--stop", "2"}, "greater than"},
		{"unknown flag", []string{"-c", "x", "--bogus"}, "bogus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			_, err := parseFlags(tt.args, &stderr)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitOK, run(context.Background(), []string{"--version"}, &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "etl "))
}

func TestRun_CopiesSelectedJob(t *testing.T) {
	dir := writeJob(t)
	logFile := filepath.Join(dir, "etl.log")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-c", filepath.Join(dir, "etl.yaml"), "--tags", "crm", "--logfile", logFile,
	}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	out, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Equal(t, "id,partner", lines[0])
	assert.ElementsMatch(t, []string{"1,Acme", "2,Globex", "3,Initech"}, lines[1:])

	assert.Contains(t, stdout.String(), "copy-partners: 1 job(s), 3 record(s)")
	logs, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(logs), `"message":"job finished"`)
}

func TestRun_BadConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}, &stdout, &stderr)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "cannot read job file")
}

func TestRun_JobFailure(t *testing.T) {
	dir := writeJob(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "in.csv")))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-c", filepath.Join(dir, "etl.yaml"), "--select", "1", "--logfile", filepath.Join(dir, "etl.log"),
	}, &stdout, &stderr)
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stdout.String(), "failed:")
}
