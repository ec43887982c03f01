package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ── probes ───────────────────────────────────────────────────────────────────

func goodAWS(context.Context) (string, string, error) {
	return "123456789012", "eu-west-1", nil
}

func failAWS(context.Context) (string, string, error) {
	return "", "", errors.New("no credentials")
}

func reachable(context.Context, string) string { return "" }

func unreachable(context.Context, string) string { return "Request failed: connection refused" }

func neverCalled(t *testing.T) serverProbe {
	return func(context.Context, string) string {
		t.Error("server probe must not run without a valid config")
		return ""
	}
}

func noProfiles() ([]string, error) { return nil, nil }

func runDoctorWith(t *testing.T, aws awsProbe, srv serverProbe, configPath, format string) (string, DoctorResult) {
	t.Helper()
	return runDoctorProfile(t, doctorProbes{aws: aws, server: srv, profiles: noProfiles}, configPath, format, "")
}

func runDoctorProfile(t *testing.T, probes doctorProbes, configPath, format, profile string) (string, DoctorResult) {
	t.Helper()
	var buf bytes.Buffer
	result, err := runDoctor(context.Background(), probes, &buf, format, configPath, profile)
	if err != nil {
		t.Fatalf("runDoctor: %v", err)
	}
	return buf.String(), result
}

func validConfig(t *testing.T) string {
	t.Helper()
	return writeConfig(t, "https://abc.execute-api.eu-west-1.amazonaws.com/dev")
}

// ── collectDoctorResult ──────────────────────────────────────────────────────

func TestDoctor_AllHealthy(t *testing.T) {
	out, result := runDoctorWith(t, goodAWS, reachable, validConfig(t), "table")
	if !result.OverallHealthy {
		t.Errorf("OverallHealthy = false; result = %+v", result)
	}
	for _, want := range []string{"Credentials: OK", "Account: 123456789012", "Valid: OK", "Reachable: OK"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDoctor_MissingConfigIsOptional(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	out, result := runDoctorWith(t, goodAWS, neverCalled(t), path, "table")
	if !result.OverallHealthy {
		t.Error("a missing config must not make the environment unhealthy")
	}
	if result.Config.Present {
		t.Error("Config.Present = true; want false")
	}
	if !strings.Contains(out, "Not found (optional)") || !strings.Contains(out, "skipped") {
		t.Errorf("output:\n%s", out)
	}
}

func TestDoctor_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"server_url": "ftp://x"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	out, result := runDoctorWith(t, goodAWS, neverCalled(t), path, "table")
	if result.OverallHealthy || result.Config.Valid || !result.Config.Present {
		t.Errorf("config = %+v; want present and invalid", result.Config)
	}
	if !strings.Contains(out, "Valid: FAIL") {
		t.Errorf("output:\n%s", out)
	}
}

func TestDoctor_CredentialFailure(t *testing.T) {
	out, result := runDoctorWith(t, failAWS, reachable, validConfig(t), "table")
	if result.OverallHealthy || result.AWS.Credentials {
		t.Errorf("aws = %+v; want failure", result.AWS)
	}
	if !strings.Contains(out, "Credentials: FAIL (no credentials)") {
		t.Errorf("output:\n%s", out)
	}
}

func TestDoctor_ServerUnreachable(t *testing.T) {
	out, result := runDoctorWith(t, goodAWS, unreachable, validConfig(t), "table")
	if result.OverallHealthy || result.Server.Reachable {
		t.Errorf("server = %+v; want unreachable", result.Server)
	}
	if !strings.Contains(out, "Reachable: FAIL (Request failed: connection refused)") {
		t.Errorf("output:\n%s", out)
	}
}

func TestDoctor_JSONFormat(t *testing.T) {
	out, _ := runDoctorWith(t, goodAWS, reachable, validConfig(t), "json")
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	for _, key := range []string{"aws", "config", "server", "overall_healthy"} {
		if _, ok := got[key]; !ok {
			t.Errorf("JSON missing key %q", key)
		}
	}
}

// ── profiles ─────────────────────────────────────────────────────────────────

func listed(names ...string) profileLister {
	return func() ([]string, error) { return names, nil }
}

func TestDoctor_ListsProfiles(t *testing.T) {
	probes := doctorProbes{aws: goodAWS, server: reachable, profiles: listed("default", "prod")}
	out, result := runDoctorProfile(t, probes, validConfig(t), "table", "prod")
	if !result.OverallHealthy {
		t.Errorf("OverallHealthy = false; result = %+v", result)
	}
	if !strings.Contains(out, "Profiles: default, prod") {
		t.Errorf("output missing profiles row:\n%s", out)
	}
}

func TestDoctor_UnknownProfileSkipsSTS(t *testing.T) {
	stsCalled := false
	aws := func(context.Context) (string, string, error) {
		stsCalled = true
		return "123456789012", "eu-west-1", nil
	}
	probes := doctorProbes{aws: aws, server: reachable, profiles: listed("default")}
	out, result := runDoctorProfile(t, probes, validConfig(t), "table", "prdo")
	if stsCalled {
		t.Error("STS probe must not run for a profile missing from the shared files")
	}
	if result.OverallHealthy || result.AWS.Credentials {
		t.Errorf("aws = %+v; want failure", result.AWS)
	}
	want := `Credentials: FAIL (profile "prdo" not found in shared config)`
	if !strings.Contains(out, want) {
		t.Errorf("output missing %q:\n%s", want, out)
	}
}

func TestDoctor_ProfileListingErrorDoesNotBlockSTS(t *testing.T) {
	failing := func() ([]string, error) { return nil, errors.New("permission denied") }
	probes := doctorProbes{aws: goodAWS, server: reachable, profiles: failing}
	out, result := runDoctorProfile(t, probes, validConfig(t), "json", "prod")
	if !result.AWS.Credentials || result.AWS.ProfilesError != "permission denied" {
		t.Errorf("aws = %+v; want credentials ok with a profiles error", result.AWS)
	}
	if !strings.Contains(out, `"profiles_error":"permission denied"`) {
		t.Errorf("JSON missing profiles_error:\n%s", out)
	}
}

// ── httpProbe ────────────────────────────────────────────────────────────────

func TestHTTPProbe_UnknownMethodCountsAsReachable(t *testing.T) {
	ts := newFakeDispatcherServer(t)
	if msg := httpProbe(context.Background(), ts); msg != "" {
		t.Errorf("msg = %q; want reachable", msg)
	}
}

func TestHTTPProbe_TransportFailure(t *testing.T) {
	msg := httpProbe(context.Background(), "http://127.0.0.1:1")
	if !strings.HasPrefix(msg, "Request failed") {
		t.Errorf("msg = %q; want Request failed", msg)
	}
}
