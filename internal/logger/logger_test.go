package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Feature: storefront-logging, Property 1: Production logs are structured
func TestProperty_LogsAreStructured(t *testing.T) {
	config, err := newConfig("production", "debug")
	if err != nil {
		t.Fatalf("newConfig() error = %v", err)
	}

	properties := gopter.NewProperties(nil)

	properties.Property("every entry is one JSON object with level, timestamp, message and fields", prop.ForAll(
		func(message, sessionID string, level zapcore.Level) bool {
			var buf bytes.Buffer
			core := zapcore.NewCore(
				zapcore.NewJSONEncoder(config.EncoderConfig),
				zapcore.AddSync(&buf),
				zapcore.DebugLevel,
			)
			logger := zap.New(core)

			if ce := logger.Check(level, message); ce != nil {
				ce.Write(zap.String("session_id", sessionID))
			}
			_ = logger.Sync()

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				return false
			}
			return entry["level"] == level.String() &&
				entry["message"] == message &&
				entry["session_id"] == sessionID &&
				entry["timestamp"] != nil
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.OneConstOf(zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNewConfigLevels(t *testing.T) {
	tests := []struct {
		env, level string
		want       zapcore.Level
	}{
		{"development", "", zapcore.DebugLevel},
		{"production", "", zapcore.InfoLevel},
		{"production", "warn", zapcore.WarnLevel},
		{"development", "error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		config, err := newConfig(tt.env, tt.level)
		if err != nil {
			t.Fatalf("newConfig(%q, %q) error = %v", tt.env, tt.level, err)
		}
		if got := config.Level.Level(); got != tt.want {
			t.Errorf("newConfig(%q, %q) level = %v, want %v", tt.env, tt.level, got, tt.want)
		}
		if config.OutputPaths[0] != "stdout" {
			t.Errorf("output = %v, want stdout", config.OutputPaths)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("production", "loud"); err == nil {
		t.Error("New() accepted an unknown level")
	}
}

func TestProductionEncoding(t *testing.T) {
	config, err := newConfig("production", "")
	if err != nil {
		t.Fatal(err)
	}
	if config.Encoding != "json" {
		t.Errorf("encoding = %q, want json", config.Encoding)
	}

	dev, _ := newConfig("development", "")
	if dev.Encoding != "console" {
		t.Errorf("development encoding = %q, want console", dev.Encoding)
	}
}
