// Package config wires the daemon's flags, environment binding, and logger.
// Every flag is also settable via an ALLUMINATI_-prefixed env var.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Bind        string
	Port        int
	DatabaseDSN string

	HeartbeatInterval time.Duration
	StaleThreshold    time.Duration
	SweepInterval     time.Duration
	VotingDuration    time.Duration

	Verbose bool
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.HeartbeatInterval <= 0 || c.StaleThreshold <= 0 || c.SweepInterval <= 0 || c.VotingDuration <= 0 {
		return errors.New("intervals must be positive")
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// NewCommand builds the daemon command. run receives the validated config
// and a ready logger.
func NewCommand(run func(cmd *cobra.Command, cfg *Config, log *zap.Logger) error) *cobra.Command {
	cfg := &Config{}

	v := viper.New()
	v.SetEnvPrefix("ALLUMINATI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "alluminatid",
		Short: "Shared-lobby voting game daemon: document store, websocket gateway, lobby API.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := NewLogger(cfg.Verbose)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return run(cmd, cfg, log)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: ALLUMINATI_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: ALLUMINATI_PORT)")
	fs.StringVar(&cfg.DatabaseDSN, "database-dsn", "", "postgres DSN; empty keeps lobbies in memory (env: ALLUMINATI_DATABASE_DSN)")
	fs.DurationVar(&cfg.HeartbeatInterval, "heartbeat-interval", 5*time.Second, "player heartbeat interval (env: ALLUMINATI_HEARTBEAT_INTERVAL)")
	fs.DurationVar(&cfg.StaleThreshold, "stale-threshold", 15*time.Second, "time before a silent player is evicted (env: ALLUMINATI_STALE_THRESHOLD)")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", 15*time.Minute, "empty-lobby sweep interval (env: ALLUMINATI_SWEEP_INTERVAL)")
	fs.DurationVar(&cfg.VotingDuration, "voting-duration", 15*time.Second, "length of each voting phase (env: ALLUMINATI_VOTING_DURATION)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug logging (env: ALLUMINATI_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SilenceUsage = true

	return cmd
}

func NewLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
