package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// DefaultConfigPath is used when Load is called without a path. A missing
// file at this path is not an error; configuration then comes from the
// environment only.
const DefaultConfigPath = "./config.yaml"

const (
	DefaultListenAddress = ":8080"
	DefaultProvider      = "sendgrid"
	DefaultSMTPPort      = 587
	// DefaultMaxUploadBytes caps CSV uploads on /api/extract.
	DefaultMaxUploadBytes = 10 << 20
)

type Server struct {
	ListenAddress  string   `yaml:"listenAddress"`
	TLSCertFile    string   `yaml:"tlsCertFile"`
	TLSKeyFile     string   `yaml:"tlsKeyFile"`
	TrustedProxies []string `yaml:"trustedProxies"` // IPs/CIDRS to trust for X-Forwarded-For headers
	// AllowedOrigins are added to the CORS allow list in debug mode.
	AllowedOrigins []string `yaml:"allowedOrigins"`
	MaxUploadBytes int64    `yaml:"maxUploadBytes"`
}

// RateLimit configures the per-IP limiter in front of /api. Zero values fall
// back to ratelimit.DefaultAPIConfig.
type RateLimit struct {
	Disabled bool    `yaml:"disabled"`
	Rate     float64 `yaml:"rate"`
	Burst    int     `yaml:"burst"`
}

type SendGrid struct {
	APIKey string `yaml:"apiKey"`
	// BaseURL overrides https://api.sendgrid.com, mainly for tests.
	BaseURL string `yaml:"baseURL"`
}

type Resend struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
}

type Gmail struct {
	User        string `yaml:"user"`
	AppPassword string `yaml:"appPassword"`
}

type SMTP struct {
	Host string `yaml:"host"`
	// Port is kept as written and parsed by the smtp provider, so a bad value
	// only breaks that provider.
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Mail selects the provider and carries every provider's credentials. Only the
// block matching Provider is consulted.
type Mail struct {
	// Provider is one of sendgrid, resend, gmail, smtp (or log for development).
	Provider  string   `yaml:"provider"`
	FromEmail string   `yaml:"fromEmail"`
	SendGrid  SendGrid `yaml:"sendgrid"`
	Resend    Resend   `yaml:"resend"`
	Gmail     Gmail    `yaml:"gmail"`
	SMTP      SMTP     `yaml:"smtp"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Audit struct {
	Kafka Kafka `yaml:"kafka"`
}

type Config struct {
	Server    Server    `yaml:"server"`
	RateLimit RateLimit `yaml:"rateLimit"`
	Mail      Mail      `yaml:"mail"`
	Audit     Audit     `yaml:"audit"`
}

// Load reads the configuration file (if any), applies environment overrides
// and fills defaults. If configPath is empty, DefaultConfigPath is tried.
func Load(configPath ...string) (Config, error) {
	var config Config

	path := DefaultConfigPath
	explicit := len(configPath) > 0 && configPath[0] != ""
	if explicit {
		path = configPath[0]
	}

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(content, &config); err != nil {
			return config, fmt.Errorf("error unmarshaling YAML %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// environment-only configuration
	default:
		return config, fmt.Errorf("trying to open config file %s: %w", path, err)
	}

	config.ApplyEnv(os.LookupEnv)
	config.Defaults()
	return config, nil
}

// ApplyEnv overlays environment values onto the config. lookup is normally
// os.LookupEnv. Values are copied verbatim; each provider validates its own.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("LISTEN_ADDRESS", &c.Server.ListenAddress)

	str("EMAIL_PROVIDER", &c.Mail.Provider)
	str("FROM_EMAIL", &c.Mail.FromEmail)
	str("SENDGRID_API_KEY", &c.Mail.SendGrid.APIKey)
	str("SENDGRID_BASE_URL", &c.Mail.SendGrid.BaseURL)
	str("RESEND_API_KEY", &c.Mail.Resend.APIKey)
	str("RESEND_BASE_URL", &c.Mail.Resend.BaseURL)
	str("GMAIL_USER", &c.Mail.Gmail.User)
	str("GMAIL_APP_PASSWORD", &c.Mail.Gmail.AppPassword)
	str("SMTP_HOST", &c.Mail.SMTP.Host)
	str("SMTP_USER", &c.Mail.SMTP.User)
	str("SMTP_PASS", &c.Mail.SMTP.Password)
	str("SMTP_PORT", &c.Mail.SMTP.Port)

	if v, ok := lookup("AUDIT_KAFKA_BROKERS"); ok && v != "" {
		c.Audit.Kafka.Brokers = splitList(v)
	}
	str("AUDIT_KAFKA_TOPIC", &c.Audit.Kafka.Topic)
}

// Defaults fills unset values.
func (c *Config) Defaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = DefaultListenAddress
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = DefaultMaxUploadBytes
	}
	c.Mail.Provider = strings.ToLower(strings.TrimSpace(c.Mail.Provider))
	if c.Mail.Provider == "" {
		c.Mail.Provider = DefaultProvider
	}
	c.Mail.SMTP.Port = strings.TrimSpace(c.Mail.SMTP.Port)
	if c.Mail.SMTP.Port == "" {
		c.Mail.SMTP.Port = strconv.Itoa(DefaultSMTPPort)
	}
}

// KafkaEnabled reports whether audit events should also go to Kafka.
func (a Audit) KafkaEnabled() bool {
	return len(a.Kafka.Brokers) > 0 && a.Kafka.Topic != ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
