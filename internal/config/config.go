package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/username/choliday/internal/calendar"
)

// EnvPrefix is the prefix of environment overrides, e.g. CHOLIDAY_PREDICT_PRIORITY
const EnvPrefix = "CHOLIDAY"

// Config represents application configuration
type Config struct {
	Base     BaseConfig     `mapstructure:"base"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Predict  PredictConfig  `mapstructure:"predict"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// BaseConfig holds the weekly rule and the reference timezone
type BaseConfig struct {
	Workday  string `mapstructure:"workday"`  // e.g. "1-5", "1,3-5"; empty = weekend default
	Timezone string `mapstructure:"timezone"` // IANA name; empty = system local zone
}

// CalendarConfig lists the ICS sources, in priority order
type CalendarConfig struct {
	Source  []string `mapstructure:"source"`
	Timeout string   `mapstructure:"timeout"`
	Strict  bool     `mapstructure:"strict"`
}

// PredictConfig holds keyword lists and the conflict strategy
type PredictConfig struct {
	Work     []string `mapstructure:"work"`
	Rest     []string `mapstructure:"rest"`
	Priority string   `mapstructure:"priority"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// MetricsConfig represents the Prometheus textfile output
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// ConfigError reports a configuration problem. Any ConfigError is fatal.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func newViper() *viper.Viper {
	v := viper.New()

	// Defaults register every key so environment overrides reach Unmarshal
	v.SetDefault("base.workday", "")
	v.SetDefault("base.timezone", "")
	v.SetDefault("calendar.source", []string{})
	v.SetDefault("calendar.timeout", "10s")
	v.SetDefault("calendar.strict", false)
	v.SetDefault("predict.work", []string{})
	v.SetDefault("predict.rest", []string{})
	v.SetDefault("predict.priority", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.textfile", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := newViper()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("choliday")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/choliday")
		v.AddConfigPath("/etc/choliday")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, &ConfigError{Err: errors.New("no configuration file found (use -c)")}
		}
		return nil, &ConfigError{Err: fmt.Errorf("failed to read config: %w", err)}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("failed to unmarshal config: %w", err)}
	}

	config.ExpandEnvVars()

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := calendar.ParseWeekdays(c.Base.Workday); err != nil {
		return &ConfigError{Key: "base.workday", Err: err}
	}

	if _, err := c.Base.Location(); err != nil {
		return &ConfigError{Key: "base.timezone", Err: err}
	}

	if strings.TrimSpace(c.Predict.Priority) == "" {
		return &ConfigError{Key: "predict.priority", Err: errors.New("is required")}
	}
	if _, err := calendar.ParsePriority(c.Predict.Priority); err != nil {
		return &ConfigError{Key: "predict.priority", Err: err}
	}

	for i, src := range c.Calendar.Source {
		if strings.TrimSpace(src) == "" {
			return &ConfigError{Key: fmt.Sprintf("calendar.source[%d]", i), Err: errors.New("is empty")}
		}
	}

	if c.Calendar.Timeout != "" {
		d, err := time.ParseDuration(c.Calendar.Timeout)
		if err != nil || d <= 0 {
			return &ConfigError{Key: "calendar.timeout", Err: fmt.Errorf("invalid duration %q", c.Calendar.Timeout)}
		}
	}

	return nil
}

// Location returns the configured timezone, or time.Local when unset
func (b *BaseConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(b.Timezone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q", name)
	}
	return loc, nil
}

// GetTimeout returns the per-source fetch timeout
func (c *CalendarConfig) GetTimeout() time.Duration {
	if c.Timeout == "" {
		return 10 * time.Second
	}
	duration, err := time.ParseDuration(c.Timeout)
	if err != nil || duration <= 0 {
		return 10 * time.Second
	}
	return duration
}

// Settings converts the configuration into engine settings
func (c *Config) Settings() (calendar.Settings, error) {
	workdays, err := calendar.ParseWeekdays(c.Base.Workday)
	if err != nil {
		return calendar.Settings{}, &ConfigError{Key: "base.workday", Err: err}
	}

	priority, err := calendar.ParsePriority(c.Predict.Priority)
	if err != nil {
		return calendar.Settings{}, &ConfigError{Key: "predict.priority", Err: err}
	}

	loc, err := c.Base.Location()
	if err != nil {
		return calendar.Settings{}, &ConfigError{Key: "base.timezone", Err: err}
	}

	return calendar.Settings{
		Workdays:     workdays,
		WorkKeywords: c.Predict.Work,
		RestKeywords: c.Predict.Rest,
		Priority:     priority,
		Location:     loc,
		Strict:       c.Calendar.Strict,
	}, nil
}

// ExpandEnvVars expands environment variables in file paths and source URIs
func (c *Config) ExpandEnvVars() {
	for i, src := range c.Calendar.Source {
		c.Calendar.Source[i] = os.ExpandEnv(src)
	}
	c.Log.File = os.ExpandEnv(c.Log.File)
	c.Metrics.Textfile = os.ExpandEnv(c.Metrics.Textfile)
}
