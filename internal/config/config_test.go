package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PASSY_SESSION_FILE", "/tmp/passy-session.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Name != "passy" {
		t.Errorf("Database.Name = %q, want passy", cfg.Database.Name)
	}
	if cfg.JWT.Expiration != 15*time.Minute {
		t.Errorf("JWT.Expiration = %v", cfg.JWT.Expiration)
	}
	if cfg.Client.FanoutConcurrency != 4 {
		t.Errorf("Client.FanoutConcurrency = %d", cfg.Client.FanoutConcurrency)
	}
	if cfg.WebSocket.PingPeriod >= cfg.WebSocket.PongWait {
		t.Errorf("PingPeriod %v must be shorter than PongWait %v", cfg.WebSocket.PingPeriod, cfg.WebSocket.PongWait)
	}
	if cfg.Client.SessionFile != "/tmp/passy-session.json" {
		t.Errorf("Client.SessionFile = %q", cfg.Client.SessionFile)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PASSY_API_URL", "https://vault.example.com/api/v1")
	t.Setenv("PASSY_TIMEOUT", "5s")
	t.Setenv("PASSY_FANOUT_CONCURRENCY", "16")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Client.APIURL != "https://vault.example.com/api/v1" {
		t.Errorf("APIURL = %q", cfg.Client.APIURL)
	}
	if cfg.Client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Client.Timeout)
	}
	if cfg.Client.FanoutConcurrency != 16 {
		t.Errorf("FanoutConcurrency = %d", cfg.Client.FanoutConcurrency)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "bad duration", key: "JWT_EXPIRATION", value: "soon", wantErr: "JWT_EXPIRATION"},
		{name: "bad client timeout", key: "PASSY_TIMEOUT", value: "10", wantErr: "PASSY_TIMEOUT"},
		{name: "zero concurrency", key: "PASSY_FANOUT_CONCURRENCY", value: "0", wantErr: "PASSY_FANOUT_CONCURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
