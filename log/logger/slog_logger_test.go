package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hatlonely/db2z/log/writer"
	"github.com/hatlonely/db2z/ref"
)

func TestNewSLogWithOptions(t *testing.T) {
	tests := []struct {
		name    string
		options *SLogOptions
		wantErr bool
	}{
		{name: "nil options", options: nil, wantErr: true},
		{name: "default console output", options: &SLogOptions{Level: "info"}},
		{name: "empty level and format", options: &SLogOptions{}},
		{
			name: "console output with options",
			options: &SLogOptions{
				Level:  "debug",
				Format: "json",
				Output: &ref.TypeOptions{
					Namespace: "github.com/hatlonely/db2z/log/writer",
					Type:      "ConsoleWriter",
					Options:   &writer.ConsoleWriterOptions{Target: "discard"},
				},
			},
		},
		{
			name: "unknown writer",
			options: &SLogOptions{
				Output: &ref.TypeOptions{Namespace: "unknown", Type: "Writer"},
			},
			wantErr: true,
		},
		{name: "invalid level", options: &SLogOptions{Level: "invalid"}, wantErr: true},
		{name: "invalid format", options: &SLogOptions{Level: "info", Format: "invalid"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewSLogWithOptions(tt.options)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSLogWithOptions() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && l == nil {
				t.Error("NewSLogWithOptions() returned nil logger without error")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"warning", false},
		{"error", false},
		{"DEBUG", false},
		{"", false},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			_, err := parseLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
		})
	}
}

func TestSLogWritesJSON(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "slog.log")

	l, err := NewSLogWithOptions(&SLogOptions{
		Level:  "debug",
		Format: "json",
		Output: &ref.TypeOptions{
			Namespace: "github.com/hatlonely/db2z/log/writer",
			Type:      "FileWriter",
			Options:   &writer.FileWriterOptions{Path: logFile},
		},
		Fields: map[string]any{"service": "db2z"},
	})
	if err != nil {
		t.Fatalf("NewSLogWithOptions() error = %v", err)
	}

	l.WithGroup("migrate").Info("table created", "table", "WIDGET")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if record["service"] != "db2z" {
		t.Errorf("service field = %v, want db2z", record["service"])
	}
	group, ok := record["migrate"].(map[string]any)
	if !ok || group["table"] != "WIDGET" {
		t.Errorf("grouped field = %v, want table=WIDGET", record["migrate"])
	}
}

func TestSLogLevelFilter(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "level.log")

	l, err := NewSLogWithOptions(&SLogOptions{
		Level: "warn",
		Output: &ref.TypeOptions{
			Namespace: "github.com/hatlonely/db2z/log/writer",
			Type:      "FileWriter",
			Options:   &writer.FileWriterOptions{Path: logFile},
		},
	})
	if err != nil {
		t.Fatalf("NewSLogWithOptions() error = %v", err)
	}

	l.Info("hidden")
	l.Warn("shown")
	_ = l.Close()

	content, _ := os.ReadFile(logFile)
	if strings.Contains(string(content), "hidden") {
		t.Errorf("info message should be filtered at warn level")
	}
	if !strings.Contains(string(content), "shown") {
		t.Errorf("warn message missing from output")
	}
}
