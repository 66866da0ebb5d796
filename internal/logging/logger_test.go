package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger enabled with no level configured")
	}
}

func TestInitializeFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	defer SetLogger(nil)

	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) {
		t.Error("info enabled at warn level")
	}
	if !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn disabled at warn level")
	}
}

func TestInitializeWithFile(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	path := filepath.Join(t.TempDir(), "mdcctl.log")

	if err := InitializeWithOptions(Options{Level: "info", File: path}); err != nil {
		t.Fatalf("InitializeWithOptions() error = %v", err)
	}
	defer SetLogger(nil)

	Info("written to file", zap.String("key", "value"))
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file missing entry, got %q", data)
	}
}

func TestLogFrameOnlyAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogFrame("tx", []byte{0xaa, 0x11, 0x01, 0x00, 0x12})
	if logs.Len() != 0 {
		t.Fatalf("LogFrame logged %d entries at info level, want 0", logs.Len())
	}

	core, logs = observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))

	LogFrame("rx", []byte{0xaa, 0x11, 0x01, 0x00, 0x12})
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("LogFrame logged %d entries at debug level, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["hex"] != "aa11010012" {
		t.Errorf("hex = %v, want aa11010012", fields["hex"])
	}
	if fields["direction"] != "rx" {
		t.Errorf("direction = %v, want rx", fields["direction"])
	}
}

func TestHexDumpTruncates(t *testing.T) {
	data := make([]byte, 300)
	got := hexDump(data)
	if !strings.HasSuffix(got, "...") {
		t.Error("hexDump of 300 bytes not truncated")
	}
	if len(got) != 512+3 {
		t.Errorf("len(hexDump) = %d, want %d", len(got), 515)
	}
}

func TestAsciiDump(t *testing.T) {
	if got := asciiDump([]byte{'A', 0x00, 'z', 0xff}); got != "A.z." {
		t.Errorf("asciiDump() = %q, want %q", got, "A.z.")
	}
}
