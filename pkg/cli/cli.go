package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/telekom/csv-mailer/pkg/config"
)

// DefaultShutdownTimeout leaves room for a running send run to finish.
const DefaultShutdownTimeout = 2 * time.Minute

type Config struct {
	// Application flags
	Debug bool

	// Configuration flags
	ConfigPath    string
	EnvFile       string
	ListenAddress string

	// DryRun replaces the configured provider with the log provider.
	DryRun bool

	ShutdownTimeout string
}

// Parse parses os.Args into a Config using the global flag set.
func Parse() *Config {
	config, err := ParseArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		// flag.CommandLine uses ExitOnError, so this is not reached.
		panic(err)
	}
	return config
}

// ParseArgs defines the flags on fs and parses args.
func ParseArgs(fs *flag.FlagSet, args []string) (*Config, error) {
	c := &Config{}
	// Define command-line flags with environment variable fallbacks.
	// The pattern: fs.XxxVar(&variable, "flag-name", defaultValueOrEnvValue, "help text")
	fs.BoolVar(&c.Debug, "debug", getEnvBool("DEBUG", false), "Enable debug level logging and permissive CORS")

	fs.StringVar(&c.ConfigPath, "config-path", getEnvString("CSV_MAILER_CONFIG_PATH", config.DefaultConfigPath),
		"Path to the optional YAML configuration file")
	fs.StringVar(&c.EnvFile, "env-file", getEnvString("ENV_FILE", ".env"),
		"Path to a .env file loaded before configuration; missing files are ignored")
	fs.StringVar(&c.ListenAddress, "listen-address", getEnvString("LISTEN_ADDRESS", ""),
		"The address the HTTP server binds to (host:port); overrides the configuration file")
	fs.BoolVar(&c.DryRun, "dry-run", getEnvBool("DRY_RUN", false),
		"Log messages instead of sending them")
	fs.StringVar(&c.ShutdownTimeout, "shutdown-timeout", getEnvString("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout.String()),
		"How long running requests may take to finish on shutdown (e.g., '2m', '30s')")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Print(log *zap.SugaredLogger) {
	log.Infow("CLI Configuration",
		"debug", c.Debug,
		"config_path", c.ConfigPath,
		"env_file", c.EnvFile,
		"listen_address", c.ListenAddress,
		"dry_run", c.DryRun,
		"shutdown_timeout", c.ShutdownTimeout,
	)
}

// Apply overlays flag values onto the loaded configuration.
func (c *Config) Apply(cfg *config.Config) {
	if c.ListenAddress != "" {
		cfg.Server.ListenAddress = c.ListenAddress
	}
	if c.DryRun {
		cfg.Mail.Provider = "log"
	}
}

func ParseShutdownTimeout(value string, log *zap.SugaredLogger) time.Duration {
	timeout, err := parseDuration("shutdown-timeout", value, DefaultShutdownTimeout)
	if err != nil {
		log.Warn(err)
	}
	return timeout
}

func parseDuration(name, value string, def time.Duration) (time.Duration, error) {
	duration := def
	if value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			duration = d
		} else {
			return duration, fmt.Errorf("invalid %s %q; using default %s: %w", name, value, def.String(), err)
		}
	}

	return duration, nil
}

// getEnvString returns the value of an environment variable, or the provided default if not set.
func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvBool returns the value of an environment variable as a bool, or the provided default if not set.
// Valid true values are "true", "1", "yes" (case-insensitive).
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}
