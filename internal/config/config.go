package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	S3        S3Config        `mapstructure:"s3"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Recovery  RecoveryConfig  `mapstructure:"recovery"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"` // "dev" or "prod"
}

// SchedulerConfig tunes the background task scheduler.
type SchedulerConfig struct {
	Workers         int           `mapstructure:"workers"`
	TaskTimeout     time.Duration `mapstructure:"task_timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	RetentionDays   int           `mapstructure:"retention_days"`
	MinWeeksInPhase int           `mapstructure:"min_weeks_in_phase"`
	DispatchEvery   time.Duration `mapstructure:"dispatch_every"`
}

// RecoveryConfig tunes muscle-group recovery computation. The intensity
// factors bound how much session intensity shrinks or extends the recovery
// window (factor for intensity 1 and intensity 10 respectively).
type RecoveryConfig struct {
	DefaultHours       int     `mapstructure:"default_hours"`
	MinIntensityFactor float64 `mapstructure:"min_intensity_factor"`
	MaxIntensityFactor float64 `mapstructure:"max_intensity_factor"`
	LookbackDays       int     `mapstructure:"lookback_days"`
}

// AnalysisConfig tunes the stagnation analysis feeding phase recommendations.
type AnalysisConfig struct {
	MinConfidence            float64 `mapstructure:"min_confidence"`
	MaxWeeksPerPhase         int     `mapstructure:"max_weeks_per_phase"`
	StagnationCompletionRate float64 `mapstructure:"stagnation_completion_rate"`
}

// CacheConfig tunes workout materialization.
type CacheConfig struct {
	HorizonDays        int `mapstructure:"horizon_days"`
	TopUpThresholdDays int `mapstructure:"top_up_threshold_days"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	// Nested keys map to env vars with underscores, e.g. server.address -> SERVER_ADDRESS
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "fitness_scheduler")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("jwt.expiration", "1h")
	viper.SetDefault("log.mode", "dev")

	viper.SetDefault("scheduler.workers", 4)
	viper.SetDefault("scheduler.task_timeout", "2m")
	viper.SetDefault("scheduler.max_attempts", 3)
	viper.SetDefault("scheduler.retry_backoff", "5m")
	viper.SetDefault("scheduler.retention_days", 90)
	viper.SetDefault("scheduler.min_weeks_in_phase", 2)
	viper.SetDefault("scheduler.dispatch_every", "1m")

	viper.SetDefault("recovery.default_hours", 48)
	viper.SetDefault("recovery.min_intensity_factor", 0.75)
	viper.SetDefault("recovery.max_intensity_factor", 1.5)
	viper.SetDefault("recovery.lookback_days", 30)

	viper.SetDefault("analysis.min_confidence", 0.6)
	viper.SetDefault("analysis.max_weeks_per_phase", 6)
	viper.SetDefault("analysis.stagnation_completion_rate", 0.5)

	viper.SetDefault("cache.horizon_days", 14)
	viper.SetDefault("cache.top_up_threshold_days", 7)

	err = viper.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// No config file is fine, env vars and defaults carry it.
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
