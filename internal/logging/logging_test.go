package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// captureConsole redirects console output for the duration of the test.
func captureConsole(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := console
	console = &buf
	t.Cleanup(func() {
		console = prev
		_ = Close()
		globalMu.Lock()
		globalLogger = nil
		globalMu.Unlock()
		componentsMu.Lock()
		allowedComponents = nil
		componentsMu.Unlock()
	})
	return &buf
}

func TestWithUser(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	WithUser(base, "test-user-001").Info("test message")

	output := buf.String()
	if !strings.Contains(output, "user_id=test-user-001") {
		t.Errorf("Expected user_id in output, got: %s", output)
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected message in output, got: %s", output)
	}
}

func TestWithUser_NilLogger(t *testing.T) {
	if logger := WithUser(nil, "someone"); logger != nil {
		t.Error("WithUser(nil, ...) should return nil")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitialize_ConsoleLevel(t *testing.T) {
	buf := captureConsole(t)

	if err := Initialize(Config{Level: "warn"}); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	Chat().Info("hidden")
	Chat().Error("exchange failed", "error", "boom")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("info record should be filtered at warn level: %s", output)
	}
	if !strings.Contains(output, "exchange failed") || !strings.Contains(output, "component=chat") {
		t.Errorf("Expected error record with component, got: %s", output)
	}
}

func TestInitialize_ComponentFilter(t *testing.T) {
	buf := captureConsole(t)

	if err := Initialize(Config{Level: "debug", Components: []string{"transport"}}); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	Chat().Info("from chat")
	Transport().Info("from transport")

	output := buf.String()
	if strings.Contains(output, "from chat") {
		t.Errorf("chat component should be filtered out: %s", output)
	}
	if !strings.Contains(output, "from transport") {
		t.Errorf("transport component should be logged: %s", output)
	}
}

func TestInitialize_FileWithSeparateLevel(t *testing.T) {
	buf := captureConsole(t)
	path := filepath.Join(t.TempDir(), "chatterm.log")

	err := Initialize(Config{
		Level:     "error",
		FileLevel: "debug",
		File:      FileConfig{Path: path},
	})
	if err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	CLI().Debug("debug detail")
	CLI().Error("visible everywhere")
	if err := Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "debug detail") || !strings.Contains(string(data), "visible everywhere") {
		t.Errorf("log file missing records: %s", data)
	}
	if strings.Contains(buf.String(), "debug detail") {
		t.Errorf("console should not get debug records: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "visible everywhere") {
		t.Errorf("console missing error record: %s", buf.String())
	}
}
