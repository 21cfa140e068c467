package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	catalogPebble   = "pebble"
	catalogPostgres = "postgres"
)

type Config struct {
	bind          string
	catalog       string
	catalogPath   string
	corsOrigin    string
	countdown     int
	databaseURL   string
	eventBurst    int
	eventRate     float64
	guessPoints   int
	port          int
	prefix        string
	profile       bool
	raceDuration  time.Duration
	roundDuration time.Duration
	tlsCert       string
	tlsKey        string
	verbose       bool
	version       bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}

	switch c.catalog {
	case catalogPebble:
		if c.catalogPath == "" {
			return errors.New("--catalog-path must not be empty when --catalog=pebble")
		}
	case catalogPostgres:
		if c.databaseURL == "" {
			return errors.New("--database-url is required when --catalog=postgres")
		}
	default:
		return fmt.Errorf("invalid catalog backend (must be %q or %q): %q", catalogPebble, catalogPostgres, c.catalog)
	}

	if c.countdown < 1 {
		return fmt.Errorf("invalid countdown (must be at least 1): %d", c.countdown)
	}
	if c.roundDuration < time.Second || c.roundDuration%time.Second != 0 {
		return fmt.Errorf("invalid round duration (must be whole seconds, at least 1s): %s", c.roundDuration)
	}
	if c.raceDuration < time.Second || c.raceDuration%time.Second != 0 {
		return fmt.Errorf("invalid race duration (must be whole seconds, at least 1s): %s", c.raceDuration)
	}
	if c.guessPoints < 1 {
		return fmt.Errorf("invalid guess points (must be at least 1): %d", c.guessPoints)
	}
	if c.eventRate <= 0 || c.eventBurst < 1 {
		return fmt.Errorf("invalid event rate limit: %v/s burst %d", c.eventRate, c.eventBurst)
	}

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GAMEROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "gameroom",
		Short:         "Real-time room coordinator for drawing and typing party games.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}

			setupLogging(cfg)

			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: GAMEROOM_BIND)")
	fs.StringVar(&cfg.catalog, "catalog", catalogPebble, "room catalog backend, pebble or postgres (env: GAMEROOM_CATALOG)")
	fs.StringVar(&cfg.catalogPath, "catalog-path", "gameroom.db", "directory for the pebble catalog (env: GAMEROOM_CATALOG_PATH)")
	fs.StringVar(&cfg.corsOrigin, "cors-origin", "*", "allowed browser origin (env: GAMEROOM_CORS_ORIGIN)")
	fs.IntVar(&cfg.countdown, "countdown", 3, "seconds counted down before a round starts (env: GAMEROOM_COUNTDOWN)")
	fs.StringVar(&cfg.databaseURL, "database-url", "", "postgres connection string (env: GAMEROOM_DATABASE_URL)")
	fs.IntVar(&cfg.eventBurst, "event-burst", 240, "inbound events allowed in a burst per connection (env: GAMEROOM_EVENT_BURST)")
	fs.Float64Var(&cfg.eventRate, "event-rate", 120, "sustained inbound events per second per connection (env: GAMEROOM_EVENT_RATE)")
	fs.IntVar(&cfg.guessPoints, "guess-points", 15, "points awarded for a correct guess (env: GAMEROOM_GUESS_POINTS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: GAMEROOM_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: GAMEROOM_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: GAMEROOM_PROFILE)")
	fs.DurationVar(&cfg.raceDuration, "race-duration", 60*time.Second, "time budget for a typing race (env: GAMEROOM_RACE_DURATION)")
	fs.DurationVar(&cfg.roundDuration, "round-duration", 60*time.Second, "length of a drawing turn (env: GAMEROOM_ROUND_DURATION)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: GAMEROOM_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: GAMEROOM_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: GAMEROOM_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: GAMEROOM_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("gameroom v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
