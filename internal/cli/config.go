package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/utkarsh5026/lambdapool/internal/algorithms"
	"github.com/utkarsh5026/lambdapool/pool"
)

// EnvPrefix prefixes every environment variable read by the CLI, e.g.
// LAMBDAPOOL_WORKERS or LAMBDAPOOL_RETRY_MAX_ATTEMPTS.
const EnvPrefix = "LAMBDAPOOL"

// Config is the merged configuration of flags, environment and the optional YAML file.
// Flags win over the environment, which wins over the file.
type Config struct {
	Workers       int             `mapstructure:"workers" yaml:"workers"`
	QueueCapacity int             `mapstructure:"queue-capacity" yaml:"queue-capacity"`
	DrainTimeout  time.Duration   `mapstructure:"drain-timeout" yaml:"drain-timeout"`
	CPUAffinity   bool            `mapstructure:"cpu-affinity" yaml:"cpu-affinity"`
	Output        string          `mapstructure:"output" yaml:"output"`
	Metrics       bool            `mapstructure:"metrics" yaml:"metrics"`
	Retry         RetryConfig     `mapstructure:"retry" yaml:"retry"`
	RateLimit     RateLimitConfig `mapstructure:"rate-limit" yaml:"rate-limit"`
	Logging       LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

type RetryConfig struct {
	MaxAttempts  int              `mapstructure:"max-attempts" yaml:"max-attempts"`
	InitialDelay time.Duration    `mapstructure:"initial-delay" yaml:"initial-delay"`
	MaxDelay     time.Duration    `mapstructure:"max-delay" yaml:"max-delay"`
	Backoff      pool.BackoffType `mapstructure:"backoff" yaml:"backoff"`
	Jitter       float64          `mapstructure:"jitter" yaml:"jitter"`
}

type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"per-second" yaml:"per-second"`
	Burst     int     `mapstructure:"burst" yaml:"burst"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max-size-mb" yaml:"max-size-mb"`
	MaxBackups int    `mapstructure:"max-backups" yaml:"max-backups"`
}

var (
	validOutputs    = []string{"table", "json", "yaml"}
	validLogFormats = []string{"text", "json"}
)

// configKeys maps viper keys to the flag that sets them.
var configKeys = map[string]string{
	"workers":               "workers",
	"queue-capacity":        "queue-capacity",
	"drain-timeout":         "drain-timeout",
	"cpu-affinity":          "cpu-affinity",
	"output":                "output",
	"metrics":               "metrics",
	"retry.max-attempts":    "retry-max-attempts",
	"retry.initial-delay":   "retry-initial-delay",
	"retry.max-delay":       "retry-max-delay",
	"retry.backoff":         "retry-backoff",
	"retry.jitter":          "retry-jitter",
	"rate-limit.per-second": "rate-limit",
	"rate-limit.burst":      "rate-limit-burst",
	"logging.level":         "log-level",
	"logging.format":        "log-format",
	"logging.file":          "log-file",
	"logging.max-size-mb":   "log-max-size-mb",
	"logging.max-backups":   "log-max-backups",
}

// BindFlags registers the configuration flags on fs and returns a viper instance bound
// to them and to the LAMBDAPOOL_ environment.
func BindFlags(fs *flag.FlagSet) (*viper.Viper, error) {
	fs.IntP("workers", "w", 0, "number of workers (0 = one per CPU, keeping one free)")
	fs.Int("queue-capacity", 0, "maximum queued jobs (0 = unbounded)")
	fs.Duration("drain-timeout", 10*time.Second, "how long shutdown waits for unfinished jobs (0 = forever)")
	fs.Bool("cpu-affinity", false, "pin each worker to a CPU core (linux only)")
	fs.StringP("output", "o", "table", "output format: table, json or yaml")
	fs.Bool("metrics", false, "append a metrics summary to the output")

	fs.Int("retry-max-attempts", 1, "attempts per job, including the first")
	fs.Duration("retry-initial-delay", 100*time.Millisecond, "delay before the first retry")
	fs.Duration("retry-max-delay", 5*time.Second, "upper bound of the retry delay")
	fs.String("retry-backoff", "exponential", "backoff algorithm: exponential, jittered or decorrelated")
	fs.Float64("retry-jitter", 0.1, "jitter factor for jittered backoff, between 0 and 1")

	fs.Float64("rate-limit", 0, "maximum jobs started per second (0 = unlimited)")
	fs.Int("rate-limit-burst", 1, "jobs allowed to start in a burst")

	fs.String("log-level", "warn", "log level: debug, info, warn or error")
	fs.String("log-format", "text", "log format: text or json")
	fs.String("log-file", "", "write logs to this rotated file instead of stderr")
	fs.Int("log-max-size-mb", 10, "rotate the log file after this many megabytes")
	fs.Int("log-max-backups", 3, "rotated log files to keep")

	v := viper.New()
	for key, name := range configKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("binding flag %q: %w", name, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v, nil
}

// Load reads the YAML config file, if any, and decodes the merged settings.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error while reading the config file: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		backoffDecodeHook(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("error while unmarshaling the config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// backoffDecodeHook turns backoff names into pool.BackoffType values.
func backoffDecodeHook() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(pool.BackoffExponential)

	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != target {
			return data, nil
		}

		name := strings.ToLower(strings.TrimSpace(data.(string)))
		kind, ok := algorithms.ParseBackoffType(name)
		if !ok {
			return nil, fmt.Errorf("unknown backoff %q", name)
		}
		return kind, nil
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.QueueCapacity < 0 {
		errs = append(errs, fmt.Errorf("queue-capacity must not be negative, got %d", c.QueueCapacity))
	}
	if !slices.Contains(validOutputs, c.Output) {
		errs = append(errs, fmt.Errorf("output must be one of %v, got %q", validOutputs, c.Output))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry max-attempts must be at least 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		errs = append(errs, fmt.Errorf("retry jitter must be within [0, 1], got %v", c.Retry.Jitter))
	}
	if c.RateLimit.PerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate-limit must not be negative, got %v", c.RateLimit.PerSecond))
	}
	if !slices.Contains(validLogFormats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("log format must be one of %v, got %q", validLogFormats, c.Logging.Format))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// PoolSize returns the configured worker count, or the default size when unset.
func (c Config) PoolSize() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return pool.DefaultSize()
}

// PoolOptions translates the configuration into pool options.
func (c Config) PoolOptions() []pool.WorkerPoolOption {
	opts := []pool.WorkerPoolOption{
		pool.WithQueueCapacity(c.QueueCapacity),
		pool.WithRetryPolicy(c.Retry.MaxAttempts, c.Retry.InitialDelay),
		pool.WithBackoff(c.Retry.Backoff, c.Retry.MaxDelay, c.Retry.Jitter),
		pool.WithRateLimit(c.RateLimit.PerSecond, c.RateLimit.Burst),
	}
	if c.CPUAffinity {
		opts = append(opts, pool.WithCPUAffinity())
	}
	return opts
}
