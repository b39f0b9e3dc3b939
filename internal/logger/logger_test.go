package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{" warn ", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig returned error for missing file: %v", err)
	}

	if config.Level != "INFO" {
		t.Errorf("Default level = %q, want INFO", config.Level)
	}
	if !config.Console() {
		t.Error("console output should be on by default")
	}
	if config.ConsoleStream != "stderr" {
		t.Errorf("Default ConsoleStream = %q, want stderr", config.ConsoleStream)
	}
	if config.FileEnabled {
		t.Error("Default FileEnabled = true, want false")
	}
	if config.FilePath != "logs/wavetiles.log" {
		t.Errorf("Default FilePath = %q", config.FilePath)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wavetiles.yaml")
	yamlContent := `logging:
  level: DEBUG
  console_enabled: false
  console_format: json
  file_enabled: true
  file_path: test.log
  file_max_size_mb: 20
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if config.Level != "DEBUG" {
		t.Errorf("Level = %q, want DEBUG", config.Level)
	}
	if config.Console() {
		t.Error("console_enabled: false was ignored")
	}
	if config.ConsoleFormat != "json" {
		t.Errorf("ConsoleFormat = %q, want json", config.ConsoleFormat)
	}
	if !config.FileEnabled || config.FilePath != "test.log" {
		t.Errorf("file settings = %v %q", config.FileEnabled, config.FilePath)
	}
	if config.FileMaxSizeMB != 20 {
		t.Errorf("FileMaxSizeMB = %d, want 20", config.FileMaxSizeMB)
	}
	// Not in the file, so the default stays.
	if config.FileMaxBackups != 5 {
		t.Errorf("FileMaxBackups = %d, want 5", config.FileMaxBackups)
	}
}

func TestLoadConfigRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("logging: [level"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestEnvVarOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("LOG_CONSOLE_FORMAT", "json")
	t.Setenv("LOG_CONSOLE_STREAM", "STDOUT")
	t.Setenv("LOG_CONSOLE_ENABLED", "false")
	t.Setenv("LOG_FILE_ENABLED", "true")
	t.Setenv("LOG_FILE_PATH", "/custom/path.log")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if config.Level != "ERROR" {
		t.Errorf("Level = %q, want ERROR", config.Level)
	}
	if config.ConsoleFormat != "json" {
		t.Errorf("ConsoleFormat = %q, want json", config.ConsoleFormat)
	}
	if config.ConsoleStream != "stdout" {
		t.Errorf("ConsoleStream = %q, want stdout", config.ConsoleStream)
	}
	if config.Console() {
		t.Error("LOG_CONSOLE_ENABLED=false was ignored")
	}
	if !config.FileEnabled || config.FilePath != "/custom/path.log" {
		t.Errorf("file settings = %v %q", config.FileEnabled, config.FilePath)
	}
}

func TestSetOutputText(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "text", slog.LevelInfo)

	Info("Generation complete", "rows", 8)
	Debug("Contradiction suppressed")

	output := buf.String()
	if !strings.Contains(output, "Generation complete") || !strings.Contains(output, "rows=8") {
		t.Errorf("missing INFO record: %s", output)
	}
	if strings.Contains(output, "Contradiction suppressed") {
		t.Errorf("DEBUG record leaked at INFO level: %s", output)
	}
}

func TestSetOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "JSON", slog.LevelInfo)

	Info("JSON test", "field1", "value1", "field2", 42)

	output := buf.String()
	for _, want := range []string{`"msg":"JSON test"`, `"field1":"value1"`, `"field2":42`} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %s: %s", want, output)
		}
	}
}

func TestAlwaysBypassesLogLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "text", slog.LevelError)

	Debug("Debug message")
	Info("Info message")
	Warning("Warning")
	Error("Error message")
	Always("Always message")

	output := buf.String()
	for _, hidden := range []string{"Debug message", "Info message", "Warning"} {
		if strings.Contains(output, hidden) {
			t.Errorf("%q appeared at ERROR level", hidden)
		}
	}
	if !strings.Contains(output, "Error message") {
		t.Error("ERROR message missing from output")
	}
	if !strings.Contains(output, "level=ALWAYS") || !strings.Contains(output, "Always message") {
		t.Errorf("ALWAYS record missing or misformatted: %s", output)
	}
}

func TestWithAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "text", slog.LevelInfo)

	With("session", "abc").Info("Round")
	if !strings.Contains(buf.String(), "session=abc") {
		t.Errorf("With attributes missing: %s", buf.String())
	}
}

func TestMultiHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newMultiHandler(
		slog.NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	mu.Lock()
	logger = slog.New(h)
	mu.Unlock()

	Info("Multi-handler test", "field", "value")
	Warning("Both see this")

	if !strings.Contains(buf1.String(), "field=value") {
		t.Error("first handler missing INFO record")
	}
	if strings.Contains(buf2.String(), "Multi-handler test") {
		t.Error("second handler should filter INFO")
	}
	if !strings.Contains(buf2.String(), "Both see this") {
		t.Error("second handler missing WARN record")
	}
}

func TestInitializeWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	off := false
	cfg := DefaultConfig()
	cfg.ConsoleEnabled = &off
	cfg.FileEnabled = true
	cfg.FilePath = path

	if err := Initialize(cfg); err != nil {
		t.Fatal(err)
	}
	Info("to file", "seed", 7)
	if err := Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "seed=7") {
		t.Errorf("log file content = %q", data)
	}
}

func TestNilLogger(t *testing.T) {
	mu.Lock()
	logger = nil
	mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("logging with nil logger panicked: %v", r)
		}
	}()

	Debug("debug")
	Info("info")
	Warning("warning")
	Error("error")
	Always("always")
	With("k", "v").Info("discarded")
}
