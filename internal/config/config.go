package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/DoyleJ11/styleguess-backend/internal/engine"
)

const EnvPrefix = "STYLEGUESS"

type Config struct {
	Bind            string
	Port            int
	Catalog         string
	Budget          int
	TickInterval    time.Duration
	EvaluationDelay time.Duration
	RetryDelay      time.Duration
	LogLevel        string
	DevLogging      bool
	CORSOrigins     []string
	NATSURL         string
	NATSSubject     string
	Seed            uint64
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.Catalog == "" {
		return errors.New("--catalog is required")
	}
	if c.Budget < 1 {
		return fmt.Errorf("invalid round budget (must be at least 1 second): %d", c.Budget)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("invalid tick interval: %s", c.TickInterval)
	}
	if c.EvaluationDelay < 0 || c.RetryDelay < 0 {
		return errors.New("delays must not be negative")
	}
	if c.NATSURL != "" && c.NATSSubject == "" {
		return errors.New("--nats-subject must be set when --nats-url is")
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

func (c *Config) Rules() engine.Rules {
	return engine.Rules{
		BudgetSec:       c.Budget,
		EvaluationDelay: c.EvaluationDelay,
		RetryDelay:      c.RetryDelay,
	}
}

// NewCommand builds the root command. Flags win over STYLEGUESS_* env vars,
// which win over defaults. run is only called with a validated config.
func NewCommand(cfg *Config, run func(ctx context.Context, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "styleguess",
		Short: "Serves the style-transfer guessing game.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	defaults := engine.DefaultRules()
	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: STYLEGUESS_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: STYLEGUESS_PORT)")
	fs.StringVarP(&cfg.Catalog, "catalog", "c", "", "puzzle catalog: file path, http(s) URL or postgres DSN (env: STYLEGUESS_CATALOG)")
	fs.IntVar(&cfg.Budget, "budget", defaults.BudgetSec, "seconds per round (env: STYLEGUESS_BUDGET)")
	fs.DurationVar(&cfg.TickInterval, "tick-interval", time.Second, "wall time per countdown second (env: STYLEGUESS_TICK_INTERVAL)")
	fs.DurationVar(&cfg.EvaluationDelay, "evaluation-delay", defaults.EvaluationDelay, "pause before a completed pair is judged (env: STYLEGUESS_EVALUATION_DELAY)")
	fs.DurationVar(&cfg.RetryDelay, "retry-delay", defaults.RetryDelay, "how long a wrong pair stays shown (env: STYLEGUESS_RETRY_DELAY)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "debug, info, warn or error (env: STYLEGUESS_LOG_LEVEL)")
	fs.BoolVar(&cfg.DevLogging, "dev-logging", false, "human readable logs (env: STYLEGUESS_DEV_LOGGING)")
	fs.StringSliceVar(&cfg.CORSOrigins, "cors-origins", []string{"*"}, "allowed browser origins (env: STYLEGUESS_CORS_ORIGINS)")
	fs.StringVar(&cfg.NATSURL, "nats-url", "", "publish round signals to this NATS server (env: STYLEGUESS_NATS_URL)")
	fs.StringVar(&cfg.NATSSubject, "nats-subject", "styleguess", "subject prefix for round signals (env: STYLEGUESS_NATS_SUBJECT)")
	fs.Uint64Var(&cfg.Seed, "seed", 0, "seed for puzzle draws and shuffles, 0 for random (env: STYLEGUESS_SEED)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
