package config

import (
	"io"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func execute(t *testing.T, args []string) Config {
	t.Helper()
	var got Config
	cmd := NewCommand(func(cmd *cobra.Command, cfg *Config, log *zap.Logger) error {
		got = *cfg
		return nil
	})
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	return got
}

func TestEnvVarsBindToFlags(t *testing.T) {
	t.Setenv("ALLUMINATI_PORT", "9090")
	t.Setenv("ALLUMINATI_DATABASE_DSN", "postgres://localhost/alluminati")
	t.Setenv("ALLUMINATI_HEARTBEAT_INTERVAL", "50ms")

	cfg := execute(t, []string{})
	if cfg.Port != 9090 {
		t.Fatalf("port not bound from env: %d", cfg.Port)
	}
	if cfg.DatabaseDSN != "postgres://localhost/alluminati" {
		t.Fatalf("dsn not bound from env: %q", cfg.DatabaseDSN)
	}
	if cfg.HeartbeatInterval != 50*time.Millisecond {
		t.Fatalf("interval not bound from env: %v", cfg.HeartbeatInterval)
	}
}

func TestFlagsWinOverEnv(t *testing.T) {
	t.Setenv("ALLUMINATI_PORT", "9090")

	cfg := execute(t, []string{"--port", "7777"})
	if cfg.Port != 7777 {
		t.Fatalf("explicit flag lost to env: %d", cfg.Port)
	}
}

func TestDefaultsWithoutEnvOrFlags(t *testing.T) {
	cfg := execute(t, []string{})
	if cfg.Port != 8080 || cfg.Bind != "0.0.0.0" {
		t.Fatalf("unexpected defaults: %s:%d", cfg.Bind, cfg.Port)
	}
	if cfg.HeartbeatInterval != 5*time.Second || cfg.StaleThreshold != 15*time.Second {
		t.Fatalf("unexpected interval defaults: %v / %v", cfg.HeartbeatInterval, cfg.StaleThreshold)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Port:              8080,
		HeartbeatInterval: 5 * time.Second,
		StaleThreshold:    15 * time.Second,
		SweepInterval:     15 * time.Minute,
		VotingDuration:    15 * time.Second,
	}

	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Port = 70000 }, true},
		{"zero heartbeat", func(c *Config) { c.HeartbeatInterval = 0 }, true},
		{"negative stale threshold", func(c *Config) { c.StaleThreshold = -time.Second }, true},
		{"zero sweep interval", func(c *Config) { c.SweepInterval = 0 }, true},
		{"zero voting duration", func(c *Config) { c.VotingDuration = 0 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
