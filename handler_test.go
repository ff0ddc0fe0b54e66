package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner stands in for the SSH runner: canned output per command
// substring, optional per-host failures, and a record of every invocation.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []string
	hostErr map[string]error
	outputs map[string]string
}

func (f *fakeRunner) Run(host, user, password, cmd string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, host+" "+cmd)
	if err := f.hostErr[host]; err != nil {
		return "", err
	}
	for substr, out := range f.outputs {
		if strings.Contains(cmd, substr) {
			return out, nil
		}
	}
	return "", nil
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestExporter(runner commandRunner) *exporter {
	return &exporter{
		config: &Config{Targets: map[string]TargetConfig{
			"esxi1": {Username: "root", Password: "hunter2"},
			"esxi2": {Username: "root", Password: "hunter2"},
		}},
		runner:      runner,
		perccliPath: "/opt/lsi/perccli/perccli",
	}
}

func scrape(t *testing.T, e *exporter, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics?target="+target, nil)
	rec := httptest.NewRecorder()
	e.metricsHandler(rec, req)
	return rec
}

func TestMetricsHandlerUnknownTarget(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestExporter(runner)

	rec := scrape(t, e, "nosuchhost")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// The runner must never be reached for an unresolved target.
	assert.Zero(t, runner.callCount())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	e.metricsHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, runner.callCount())
}

func TestMetricsHandlerSuccess(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"show all J": readFixture(t, "show_all.json"),
		"show smart": readFixture(t, "show_smart.txt"),
	}}
	e := newTestExporter(runner)

	rec := scrape(t, e, "esxi1")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `megaraid_controller_info{controller="0",fwversion="25.5.9.0001",model="PERC H730P Mini",serial="58Q02AB"} 1`)
	assert.Contains(t, body, `megaraid_controller_status{controller="0"} 1`)
	assert.Contains(t, body, `megaraid_drive_smart{attribute="power_on_hours",controller="0",drive="Drive /c0/e32/s0"} 29618`)
	assert.Contains(t, body, `megaraid_virtual_drive_status{controller="0",vd="DG1/VD1"} 0`)
	assert.Contains(t, body, `megaraid_bbu_health{controller="0"} 1`)

	// One controller dump plus one SMART query per MegaRAID drive; the
	// mpt3sas controller gets no drive queries.
	assert.Equal(t, 3, runner.callCount())
	assert.Contains(t, runner.calls[0], "cd /opt/lsi/perccli && ./perccli /cALL show all J")
	assert.Contains(t, runner.calls[1], "/c0/e32/s0 show smart")
}

func TestMetricsHandlerTransportFailure(t *testing.T) {
	runner := &fakeRunner{
		hostErr: map[string]error{"esxi1": fmt.Errorf("dial: %w", ErrTimeout)},
		outputs: map[string]string{
			"show all J": readFixture(t, "show_all.json"),
			"show smart": readFixture(t, "show_smart.txt"),
		},
	}
	e := newTestExporter(runner)

	rec := scrape(t, e, "esxi1")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, rec.Body.String())

	// The service keeps serving other targets after a failed scrape.
	rec = scrape(t, e, "esxi2")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "megaraid_controller_status")
}

func TestMetricsHandlerMalformedOutput(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"show all J": "perccli: command not found",
	}}
	e := newTestExporter(runner)

	rec := scrape(t, e, "esxi1")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestMetricsHandlerSMARTFailureDegrades(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"show all J": readFixture(t, "show_all.json"),
		// No "show smart" entry: every SMART query returns empty output.
	}}
	e := newTestExporter(runner)

	rec := scrape(t, e, "esxi1")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `megaraid_drive_status{controller="0",drive="Drive /c0/e32/s0"} 1`)
	assert.NotContains(t, body, "megaraid_drive_smart")
}
