/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/contestbox/contest"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind          string
	contestEnd    string
	hintUnlock    time.Duration
	idleTimeout   time.Duration
	mongoDatabase string
	mongoURI      string
	port          int
	prefix        string
	profile       bool
	redisAddr     string
	redisDB       int
	redisPassword string
	seed          string
	store         string
	storeTimeout  time.Duration
	systemAccount string
	tlsCert       string
	tlsKey        string
	verbose       bool
	version       bool

	deadline time.Time
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}

	switch c.store {
	case "memory":
		if c.seed == "" {
			return errors.New("--seed is required with --store=memory")
		}
	case "mongo":
		if c.mongoURI == "" {
			return errors.New("--mongo-uri is required with --store=mongo")
		}
		if c.mongoDatabase == "" {
			return errors.New("--mongo-database must not be empty")
		}
	default:
		return fmt.Errorf("invalid store (must be memory or mongo): %q", c.store)
	}

	if c.redisDB < 0 {
		return fmt.Errorf("invalid redis database: %d", c.redisDB)
	}
	if c.hintUnlock < 0 {
		return fmt.Errorf("invalid hint unlock delay: %s", c.hintUnlock)
	}
	if c.storeTimeout <= 0 {
		return fmt.Errorf("invalid store timeout: %s", c.storeTimeout)
	}
	if c.idleTimeout < time.Second {
		return fmt.Errorf("invalid idle timeout (must be at least 1s): %s", c.idleTimeout)
	}

	if c.contestEnd != "" {
		end, err := time.Parse(time.RFC3339, c.contestEnd)
		if err != nil {
			return fmt.Errorf("invalid contest end (must be RFC 3339): %w", err)
		}
		c.deadline = end
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
	// A missing .env file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CONTESTBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "contestbox",
		Short:         "A live quiz contest server with decaying question values and timed hints.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: CONTESTBOX_BIND)")
	fs.StringVar(&cfg.contestEnd, "contest-end", "", "RFC 3339 time after which answers and hints are refused (env: CONTESTBOX_CONTEST_END)")
	fs.DurationVar(&cfg.hintUnlock, "hint-unlock", contest.DefaultHintUnlock, "time after a question is first shown before its hints open (env: CONTESTBOX_HINT_UNLOCK)")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", 60*time.Second, "time before silent connections are dropped (env: CONTESTBOX_IDLE_TIMEOUT)")
	fs.StringVar(&cfg.mongoDatabase, "mongo-database", "contestbox", "mongodb database name (env: CONTESTBOX_MONGO_DATABASE)")
	fs.StringVar(&cfg.mongoURI, "mongo-uri", "", "mongodb connection string (env: CONTESTBOX_MONGO_URI)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: CONTESTBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: CONTESTBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: CONTESTBOX_PROFILE)")
	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for the leaderboard cache, disabled if empty (env: CONTESTBOX_REDIS_ADDR)")
	fs.IntVar(&cfg.redisDB, "redis-db", 0, "redis database number (env: CONTESTBOX_REDIS_DB)")
	fs.StringVar(&cfg.redisPassword, "redis-password", "", "redis password (env: CONTESTBOX_REDIS_PASSWORD)")
	fs.StringVar(&cfg.seed, "seed", "", "path to a json, yaml or toml file of users and questions to load at startup (env: CONTESTBOX_SEED)")
	fs.StringVar(&cfg.store, "store", "memory", "record store to use: memory or mongo (env: CONTESTBOX_STORE)")
	fs.DurationVar(&cfg.storeTimeout, "store-timeout", contest.DefaultStoreTimeout, "deadline for each store operation (env: CONTESTBOX_STORE_TIMEOUT)")
	fs.StringVar(&cfg.systemAccount, "system-account", contest.DefaultSystemAccount, "account left off the leaderboard (env: CONTESTBOX_SYSTEM_ACCOUNT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: CONTESTBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: CONTESTBOX_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: CONTESTBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: CONTESTBOX_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("contestbox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
