// internal/logging/logging_test.go - Unit tests for logger construction
package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/valpere/mapforge/internal/config"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	logger.Debug("hidden")
	logger.Info("region staged", zap.String("region", "75"))
	_ = logger.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %v", err)
	}
	if entry["msg"] != "region staged" {
		t.Errorf("Expected msg 'region staged', got %v", entry["msg"])
	}
	if entry["region"] != "75" {
		t.Errorf("Expected region field 75, got %v", entry["region"])
	}
}

func TestVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "text", Verbose: true}, &buf)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	logger.Debug("canvas created")
	_ = logger.Sync()

	if !strings.Contains(buf.String(), "canvas created") {
		t.Errorf("Expected debug entry in output, got %q", buf.String())
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LoggingConfig
	}{
		{name: "bad level", cfg: config.LoggingConfig{Level: "loud", Format: "text", Output: "stderr"}},
		{name: "bad format", cfg: config.LoggingConfig{Level: "info", Format: "xml", Output: "stderr"}},
		{name: "bad output", cfg: config.LoggingConfig{Level: "info", Format: "text", Output: "file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}
