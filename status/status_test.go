package status

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/etlkit/component"
	"github.com/kbukum/etlkit/driver"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/pipeline"
)

type fakeProvider struct {
	status driver.Status
	health []component.Health
}

func (p *fakeProvider) Status() driver.Status { return p.status }

func (p *fakeProvider) Health(context.Context) []component.Health { return p.health }

func newProvider() *fakeProvider {
	return &fakeProvider{
		status: driver.Status{
			Job:      "partners",
			State:    "running",
			Progress: "Extract: 1/4 Load: 0/2",
			Stages: []pipeline.StageProgress{
				{Name: "Extract", Depth: 1, Capacity: 4},
				{Name: "Load", Depth: 0, Capacity: 2},
			},
		},
		health: []component.Health{{Name: "d_db", Status: component.StatusHealthy}},
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestProgress(t *testing.T) {
	s := New(":0", newProvider(), logger.NewNop())

	rec := get(t, s.Handler(), "/progress")
	require.Equal(t, http.StatusOK, rec.Code)
	var st driver.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "partners", st.Job)
	require.Len(t, st.Stages, 2)
	assert.Equal(t, 4, st.Stages[0].Capacity)

	rec = get(t, s.Handler(), "/progress?format=text")
	assert.Equal(t, "Extract: 1/4 Load: 0/2\n", rec.Body.String())
}

func TestHealthz(t *testing.T) {
	p := newProvider()
	s := New(":0", p, logger.NewNop())

	rec := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	p.health = append(p.health, component.Health{Name: "errs", Status: component.StatusDegraded})
	rec = get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)

	p.health = append(p.health, component.Health{Name: "cache", Status: component.StatusUnhealthy})
	rec = get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVersion(t *testing.T) {
	s := New(":0", newProvider(), logger.NewNop())
	rec := get(t, s.Handler(), "/version")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)
}

func TestServer_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := New("127.0.0.1:0", newProvider(), logger.NewNop())
	assert.Equal(t, component.StatusUnhealthy, s.Health(ctx).Status)

	require.NoError(t, s.Start(ctx))
	assert.Equal(t, component.StatusHealthy, s.Health(ctx).Status)

	resp, err := http.Get("http://" + s.Addr() + "/progress?format=text")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "Extract: 1/4 Load: 0/2\n", string(body))

	require.NoError(t, s.Stop(ctx))
	assert.NoError(t, s.Stop(ctx))
	assert.Equal(t, "127.0.0.1:0", s.Describe().Details)
}

func TestServer_BindError(t *testing.T) {
	s := New("127.0.0.1:-1", newProvider(), logger.NewNop())
	assert.Error(t, s.Start(context.Background()))
}
