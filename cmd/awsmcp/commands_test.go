package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/automation"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
)

// ── helpers ──────────────────────────────────────────────────────────────────

// fakeDispatcher answers every method with a canned success envelope and
// records the methods it saw.
type fakeDispatcher struct {
	mu      sync.Mutex
	methods []string
}

func (f *fakeDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string         `json:"method"`
		Params map[string]any `json:"params"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	f.methods = append(f.methods, req.Method)
	f.mu.Unlock()

	var resp models.Response
	switch req.Method {
	case "get_cost_data":
		resp = models.Success(models.CostData{
			Period: "2024-03-08 to 2024-03-15",
			CostData: []models.CostResultByTime{{Groups: []models.CostGroup{{
				Keys:    []string{"Amazon EC2"},
				Metrics: map[string]models.MetricValue{"BlendedCost": {Amount: "12.5", Unit: "USD"}},
			}}}},
		})
	case "get_usage_metrics":
		resp = models.Success(map[string]any{"service": req.Params["service"], "datapoints": []any{}})
	case "get_service_insights":
		resp = models.Success(map[string]any{"EC2": map[string]int{"total_instances": 1}})
	default:
		resp = models.Failure("Unknown method: " + req.Method)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeConfig(t *testing.T, serverURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"server_url": "` + serverURL + `", "log_results": false}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newFakeDispatcherServer(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(&fakeDispatcher{})
	t.Cleanup(ts.Close)
	return ts.URL
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return buf.String(), err
}

// ── parseParams ──────────────────────────────────────────────────────────────

func TestParseParams(t *testing.T) {
	p, err := parseParams("")
	if err != nil || p != nil {
		t.Errorf("empty: got %v, %v; want nil, nil", p, err)
	}

	p, err = parseParams(`{"days": 7}`)
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	if p["days"] != float64(7) {
		t.Errorf("days = %v; want 7", p["days"])
	}

	if _, err := parseParams(`[1,2]`); err == nil {
		t.Error("a JSON array must be rejected")
	}
}

// ── printResponse ────────────────────────────────────────────────────────────

func TestPrintResponse_ErrorEnvelopeIsNotCommandError(t *testing.T) {
	var buf bytes.Buffer
	if err := printResponse(&buf, models.Failure("boom")); err != nil {
		t.Fatalf("printResponse: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got["error"] != "boom" || len(got) != 1 {
		t.Errorf("got %v; want only error=boom", got)
	}
}

// ── summaryRows ──────────────────────────────────────────────────────────────

func TestSummaryRows_OnePerUsageDescriptor(t *testing.T) {
	rows := summaryRows(automation.RunOnceResult{
		CostAnalysis:    models.Success(1),
		UsageMonitoring: []models.Response{models.Success(2), models.Failure("x")},
		ServiceAudit:    models.Success(3),
	})
	want := []string{"cost_analysis", "usage_monitoring", "usage_monitoring", "service_audit"}
	if len(rows) != len(want) {
		t.Fatalf("rows = %d; want %d", len(rows), len(want))
	}
	for i, w := range want {
		if rows[i].Operation != w {
			t.Errorf("row %d = %q; want %q", i, rows[i].Operation, w)
		}
	}
}

// ── commands ─────────────────────────────────────────────────────────────────

func TestCallCmd_SendsMethodAndPrintsEnvelope(t *testing.T) {
	fd := &fakeDispatcher{}
	ts := httptest.NewServer(fd)
	defer ts.Close()

	out, err := execute(t, "call", "get_service_insights", "--url", ts.URL, "--params", `{"services":["EC2"]}`)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !strings.Contains(out, `"total_instances": 1`) {
		t.Errorf("output missing result:\n%s", out)
	}
	if len(fd.methods) != 1 || fd.methods[0] != "get_service_insights" {
		t.Errorf("methods = %v", fd.methods)
	}
}

func TestCallCmd_UsesConfigServerURL(t *testing.T) {
	fd := &fakeDispatcher{}
	ts := httptest.NewServer(fd)
	defer ts.Close()

	out, err := execute(t, "call", "nope", "--config", writeConfig(t, ts.URL))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !strings.Contains(out, "Unknown method: nope") {
		t.Errorf("output = %s", out)
	}
}

func TestCallCmd_BadParams(t *testing.T) {
	if _, err := execute(t, "call", "get_cost_data", "--url", "http://127.0.0.1:1", "--params", "{"); err == nil {
		t.Error("expected error for malformed --params")
	}
}

func TestCostCmd_RendersTable(t *testing.T) {
	ts := httptest.NewServer(&fakeDispatcher{})
	defer ts.Close()

	out, err := execute(t, "cost", "--url", ts.URL, "--no-color")
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	for _, want := range []string{"Period: 2024-03-08 to 2024-03-15", "Amazon EC2", "12.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunOnceCmd_JSON(t *testing.T) {
	fd := &fakeDispatcher{}
	ts := httptest.NewServer(fd)
	defer ts.Close()

	out, err := execute(t, "run-once", "--config", writeConfig(t, ts.URL), "--json")
	if err != nil {
		t.Fatalf("run-once: %v", err)
	}
	var got struct {
		CostAnalysis    map[string]any   `json:"cost_analysis"`
		UsageMonitoring []map[string]any `json:"usage_monitoring"`
		ServiceAudit    map[string]any   `json:"service_audit"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if _, ok := got.CostAnalysis["result"]; !ok {
		t.Errorf("cost_analysis = %v", got.CostAnalysis)
	}
	if len(got.UsageMonitoring) != 2 {
		t.Errorf("usage_monitoring = %d entries; want 2", len(got.UsageMonitoring))
	}
	if _, ok := got.ServiceAudit["result"]; !ok {
		t.Errorf("service_audit = %v", got.ServiceAudit)
	}
}

func TestRunOnceCmd_Table(t *testing.T) {
	ts := httptest.NewServer(&fakeDispatcher{})
	defer ts.Close()

	out, err := execute(t, "run-once", "--config", writeConfig(t, ts.URL), "--no-color")
	if err != nil {
		t.Fatalf("run-once: %v", err)
	}
	if strings.Count(out, "usage_monitoring") != 2 || !strings.Contains(out, "service_audit") {
		t.Errorf("summary table:\n%s", out)
	}
}

func TestRunOnceCmd_MissingConfig(t *testing.T) {
	_, err := execute(t, "run-once", "--config", filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Error("expected error for missing config")
	}
}

func TestCallCmd_LogsToLogFile(t *testing.T) {
	ts := newFakeDispatcherServer(t)
	logPath := filepath.Join(t.TempDir(), "awsmcp.log")

	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"call", "nope", "--url", ts, "--log-level", "debug", "--log-file", logPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("call: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "server returned error envelope") {
		t.Errorf("log file missing client debug line:\n%s", data)
	}
	if strings.Contains(buf.String(), "server returned error envelope") {
		t.Errorf("client log leaked to the command output:\n%s", buf.String())
	}
}
