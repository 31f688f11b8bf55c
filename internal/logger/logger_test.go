package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func setupBuffer(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := Setup(context.Background(), Options{Level: level, Output: &buf}); err != nil {
		t.Fatalf("Setup() failed: %v", err)
	}
	return &buf
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"DEBUG", LevelDebug, false},
		{"", LevelInfo, false},
		{"warning", LevelWarning, false},
		{"WARN", LevelWarning, false},
		{"error", LevelError, false},
		{"fatal", LevelFatal, false},
		{"verbose", LevelInfo, true},
	}

	for _, tc := range testCases {
		got, err := ParseLevel(tc.input)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestSetupRespectsLevel(t *testing.T) {
	buf := setupBuffer(t, "WARN")

	Info("hidden")
	Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("INFO should be filtered at WARN level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("WARN should be written at WARN level")
	}
	if GetLevel() != LevelWarning {
		t.Errorf("GetLevel() = %v, want WARN", GetLevel())
	}
}

func TestErrorIncludesStackTrace(t *testing.T) {
	buf := setupBuffer(t, "INFO")

	Error("boom", "rule", "r1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("error line is not JSON: %v", err)
	}
	if _, ok := entry["stacktrace"]; !ok {
		t.Error("ERROR entries should carry a stacktrace")
	}
	if entry["rule"] != "r1" {
		t.Errorf("rule attr = %v, want r1", entry["rule"])
	}
}

func TestCountersIgnoreSampling(t *testing.T) {
	var buf bytes.Buffer
	Setup(context.Background(), Options{SampleRate: 1000000, Output: &buf})
	defer Setup(context.Background(), Options{Output: &buf})

	before := Snapshot()
	for i := 0; i < 10; i++ {
		Error("sampled")
	}
	after := Snapshot()

	if after.Errors-before.Errors != 10 {
		t.Errorf("error counter moved by %d, want 10", after.Errors-before.Errors)
	}
	if after.ErrorSampling != 1000000 {
		t.Errorf("ErrorSampling = %d, want 1000000", after.ErrorSampling)
	}
}

func TestRequestLoggerCountsResponses(t *testing.T) {
	buf := setupBuffer(t, "INFO")

	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte("ok"))
		}
	}))

	before := Snapshot()
	for _, path := range []string{"/ok", "/missing", "/broken"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	after := Snapshot()

	if after.Responses404-before.Responses404 != 1 {
		t.Errorf("404 counter moved by %d, want 1", after.Responses404-before.Responses404)
	}
	if after.Responses5xx-before.Responses5xx != 1 {
		t.Errorf("5xx counter moved by %d, want 1", after.Responses5xx-before.Responses5xx)
	}
	if !strings.Contains(buf.String(), `"path":"/ok"`) {
		t.Errorf("request log missing path: %s", buf.String())
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ERROR_SAMPLE_RATE", "50")
	t.Setenv("OTEL_ENABLED", "TRUE")
	t.Setenv("OTEL_SERVICE_NAME", "claims")

	opts := OptionsFromEnv()
	if opts.Level != "debug" || opts.SampleRate != 50 || !opts.OTEL || opts.ServiceName != "claims" {
		t.Errorf("OptionsFromEnv() = %+v", opts)
	}
}
