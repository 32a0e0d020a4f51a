package config

import "errors"

var (
	ErrReadingConfigFile         = errors.New("failed to read config file")
	ErrUnmarshallingConfig       = errors.New("failed to unmarshal config")
	ErrConfigFileMissing         = errors.New("config file not found")
	ErrEmptyKafkaBrokers         = errors.New("kafka brokers list cannot be empty")
	ErrEmptyKafkaTopic           = errors.New("kafka topic cannot be empty")
	ErrEmptyKafkaGroupID         = errors.New("kafka groupID cannot be empty")
	ErrNoMeasures                = errors.New("at least one measure must be configured")
	ErrInvalidMeasure            = errors.New("invalid measure configuration")
	ErrInvalidPercentileStrategy = errors.New(`stats percentileStrategy must be "naive" or "sketch"`)
	ErrInvalidReportInterval     = errors.New("stats reportInterval must be positive")
	ErrInvalidSketchCompression  = errors.New("stats sketchCompression must be positive")
)
