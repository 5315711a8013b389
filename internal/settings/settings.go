// Package settings resolves the CLI configuration from flags, environment
// variables and an optional YAML config file.
package settings

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables, e.g. MULTIUPLOAD_URL.
const EnvPrefix = "MULTIUPLOAD"

// Configuration keys. Each key is also the name of its flag.
const (
	KeyURL             = "url"
	KeyConcurrency     = "concurrency"
	KeyTimeout         = "timeout"
	KeyFormat          = "format"
	KeyTemplate        = "template"
	KeyLogLevel        = "log-level"
	KeyMetricsTextfile = "metrics-textfile"
	KeySentryDSN       = "sentry-dsn"
)

var allKeys = []string{
	KeyURL,
	KeyConcurrency,
	KeyTimeout,
	KeyFormat,
	KeyTemplate,
	KeyLogLevel,
	KeyMetricsTextfile,
	KeySentryDSN,
}

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Settings is the validated configuration of one CLI run.
type Settings struct {
	// URL is the endpoint every file is POSTed to.
	URL string

	// Concurrency caps the number of uploads in flight; 0 is unlimited.
	Concurrency int

	// Timeout is the per-request HTTP timeout; 0 is none.
	Timeout time.Duration

	Format   string
	Template string
	LogLevel string

	// MetricsTextfile, if set, receives the batch metrics in the
	// Prometheus text format.
	MetricsTextfile string

	SentryDSN string
}

// NewViper returns a viper instance reading MULTIUPLOAD_* variables.
func NewViper() *viper.Viper {
	v := viper.New()
	Configure(v)
	return v
}

// Configure sets up environment variable lookup and defaults on v.
func Configure(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyFormat, FormatText)
	v.SetDefault(KeyLogLevel, "info")
}

// BindFlags binds every configuration key to the flag of the same name,
// for the flags present in flags.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, key := range allKeys {
		flag := flags.Lookup(key)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("settings: binding flag %s: %w", key, err)
		}
	}
	return nil
}

// ReadConfigFile loads path into v, or $HOME/.multiupload.yaml when path
// is empty. A missing default file is not an error.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("settings: can't read config %s: %w", path, err)
		}
		return nil
	}

	home, err := homedir.Dir()
	if err != nil {
		return fmt.Errorf("settings: can't find home directory: %w", err)
	}

	v.AddConfigPath(home)
	v.SetConfigName(".multiupload")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("settings: can't read config: %w", err)
	}
	return nil
}

// Load reads and validates the settings from v.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		URL:             strings.TrimSpace(v.GetString(KeyURL)),
		Concurrency:     v.GetInt(KeyConcurrency),
		Timeout:         v.GetDuration(KeyTimeout),
		Format:          strings.ToLower(v.GetString(KeyFormat)),
		Template:        v.GetString(KeyTemplate),
		LogLevel:        v.GetString(KeyLogLevel),
		MetricsTextfile: v.GetString(KeyMetricsTextfile),
		SentryDSN:       v.GetString(KeySentryDSN),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings for values the uploader cannot use.
func (s *Settings) Validate() error {
	if s.URL == "" {
		return errors.New("settings: a destination URL is required (--url or MULTIUPLOAD_URL)")
	}

	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("settings: invalid url %q: %w", s.URL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("settings: invalid url %q: must be an http or https URL", s.URL)
	}

	if s.Concurrency < 0 {
		return fmt.Errorf("settings: concurrency must not be negative, got %d", s.Concurrency)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("settings: timeout must not be negative, got %s", s.Timeout)
	}

	switch s.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf(
			"settings: invalid format %q, valid formats are %s, %s and %s",
			s.Format, FormatText, FormatJSON, FormatYAML,
		)
	}

	return nil
}
