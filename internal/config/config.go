package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sanspareilsmyn/tensorlens/internal/measure"
	"github.com/sanspareilsmyn/tensorlens/internal/stats"
	"github.com/sanspareilsmyn/tensorlens/internal/tensor"
)

const (
	defaultKafkaGroupID       = "tensorlens-default-group"
	defaultPercentileStrategy = string(stats.StrategyNaive)
	defaultSketchCompression  = 1000.0
	defaultReportInterval     = 1 * time.Minute
	defaultLogLevel           = "info"
	defaultLogFormat          = "console"
	defaultLogFileEnabled     = false
	defaultLogDirectory       = "log"
	defaultLogFilename        = "app.log"
	defaultLogMaxSizeMB       = 100
	defaultLogMaxBackups      = 3
	defaultLogMaxAgeDays      = 7
	defaultLogCompress        = false

	// Environment variable prefix
	envPrefix = "TENSORLENS"
)

type Config struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
	Stats StatsConfig `mapstructure:"stats"`
	Log   LogConfig   `mapstructure:"log"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"groupID"`
}

type StatsConfig struct {
	Measures           []MeasureConfig `mapstructure:"measures"`
	PercentileStrategy string          `mapstructure:"percentileStrategy"` // "naive" or "sketch"
	SketchCompression  float64         `mapstructure:"sketchCompression"`
	ReportInterval     time.Duration   `mapstructure:"reportInterval"`
	SnapshotPath       string          `mapstructure:"snapshotPath"` // optional precomputed dataset measures
}

// MeasureConfig describes one requested statistic. A missing axes field
// reduces over all axes; an explicit empty list reduces nothing. Ranks is
// meaningful for kind "percentile" only and yields one measure per rank.
type MeasureConfig struct {
	Scope  string    `mapstructure:"scope"` // "sample" or "dataset"
	Kind   string    `mapstructure:"kind"`  // "mean", "var", "std", "percentile"
	Tensor string    `mapstructure:"tensor"`
	Axes   *[]string `mapstructure:"axes"`
	Ranks  []float64 `mapstructure:"ranks"`
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"`
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"`    // Max size in MB
	MaxBackups         int    `mapstructure:"maxBackups"` // Max backup files
	MaxAge             int    `mapstructure:"maxAge"`     // Max days to retain
	Compress           bool   `mapstructure:"compress"`   // Compress rotated files?
}

// Load initializes viper, reads config, applies defaults, unmarshals, and validates.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)
	setDefaults(v)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// configureViper sets up viper instance for file and environment variables.
func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("kafka.groupID", defaultKafkaGroupID)
	v.SetDefault("stats.percentileStrategy", defaultPercentileStrategy)
	v.SetDefault("stats.sketchCompression", defaultSketchCompression)
	v.SetDefault("stats.reportInterval", defaultReportInterval)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFileEnabled)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackups)
	v.SetDefault("log.maxAge", defaultLogMaxAgeDays)
	v.SetDefault("log.compress", defaultLogCompress)
}

// readConfigFile attempts to read the configuration file specified in viper.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return ErrConfigFileMissing
		}
		return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return ErrEmptyKafkaBrokers
	}
	if cfg.Kafka.Topic == "" {
		return ErrEmptyKafkaTopic
	}
	if cfg.Kafka.GroupID == "" {
		return ErrEmptyKafkaGroupID
	}
	if err := validateStats(&cfg.Stats); err != nil {
		return err
	}
	return nil
}

func validateStats(cfg *StatsConfig) error {
	switch stats.PercentileStrategy(cfg.PercentileStrategy) {
	case stats.StrategyNaive, stats.StrategySketch:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidPercentileStrategy, cfg.PercentileStrategy)
	}
	if cfg.SketchCompression <= 0 {
		return ErrInvalidSketchCompression
	}
	if cfg.ReportInterval <= 0 {
		return ErrInvalidReportInterval
	}
	if len(cfg.Measures) == 0 {
		return ErrNoMeasures
	}
	_, err := cfg.BuildMeasures()
	return err
}

// BuildMeasures converts the configured measure entries into engine
// descriptors, expanding percentile entries into one measure per rank.
func (cfg *StatsConfig) BuildMeasures() ([]measure.Measure, error) {
	var measures []measure.Measure
	for i, mc := range cfg.Measures {
		scope, err := measure.ParseScope(mc.Scope)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidMeasure, i, err)
		}
		kind, err := measure.ParseKind(mc.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidMeasure, i, err)
		}
		if mc.Tensor == "" {
			return nil, fmt.Errorf("%w: entry %d: tensor identifier is empty", ErrInvalidMeasure, i)
		}
		var axes []tensor.Axis
		if mc.Axes != nil {
			axes = make([]tensor.Axis, len(*mc.Axes))
			for j, a := range *mc.Axes {
				axes[j] = tensor.Axis(a)
			}
		}
		if kind != measure.Percentile {
			measures = append(measures, measure.Measure{Scope: scope, Kind: kind, TensorID: mc.Tensor, Axes: measure.KeyOf(axes)})
			continue
		}
		if len(mc.Ranks) == 0 {
			return nil, fmt.Errorf("%w: entry %d: percentile measure has no ranks", ErrInvalidMeasure, i)
		}
		for _, r := range mc.Ranks {
			if r < 0 || r > 100 {
				return nil, fmt.Errorf("%w: entry %d: rank %g outside [0,100]", ErrInvalidMeasure, i, r)
			}
			measures = append(measures, measure.Measure{Scope: scope, Kind: kind, TensorID: mc.Tensor, Axes: measure.KeyOf(axes), Rank: r})
		}
	}
	return measures, nil
}
