package logging

import (
	"errors"
	"testing"
	"time"

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
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitialize_SilentWithoutLevel(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent when no level is configured")
	}
}

func TestInitializeFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	defer SetLogger(nil)

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	core := GetLogger().Core()
	if !core.Enabled(zapcore.WarnLevel) || core.Enabled(zapcore.InfoLevel) {
		t.Error("logger should log at warn and above only")
	}

	t.Setenv(LogLevelEnvVar, "loud")
	if err := InitializeFromEnv(); err == nil {
		t.Error("InitializeFromEnv() with an unknown level should fail")
	}
}

func TestLogProtocolEvent_NeverLogsSecret(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogProtocolEvent("abc", "wifi", "submitting", zap.String("ssid", "Home WiFi"), SecretField("secret", "pass1234"))
	LogDeviceRequest("POST", "http://192.168.4.1/wifi", 0, time.Millisecond, errors.New("boom"))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx["secret_len"] != int64(8) {
		t.Errorf("secret_len = %v, want 8", ctx["secret_len"])
	}
	for k, v := range ctx {
		if s, ok := v.(string); ok && s == "pass1234" {
			t.Errorf("field %s leaked the secret", k)
		}
	}

	if entries[1].Message != "Device request failed" {
		t.Errorf("message = %q, want Device request failed", entries[1].Message)
	}
}
