package config

import (
	"fmt"
	"path/filepath"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Content    ContentConfig    `mapstructure:"content"`
	Assessment AssessmentConfig `mapstructure:"assessment"`
	Review     ReviewConfig     `mapstructure:"review"`
	Reports    ReportsConfig    `mapstructure:"reports"`
}

type ServerConfig struct {
	Port      int             `mapstructure:"port" validate:"min=1,max=65535"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig limits requests per caller. Zero disables the limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"min=0"`
	Burst             int     `mapstructure:"burst" validate:"min=0"`
}

type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver" validate:"oneof=mysql postgres sqlite"`
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	Path            string            `mapstructure:"path" validate:"required_if=Driver sqlite"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

// ContentConfig selects where question content is read from.
type ContentConfig struct {
	Provider       string `mapstructure:"provider" validate:"oneof=database rest"`
	BaseURL        string `mapstructure:"base_url" validate:"required_if=Provider rest,omitempty,url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"min=1"`
	MaxRetries     uint   `mapstructure:"max_retries"`
}

type AssessmentConfig struct {
	AutosaveIntervalSeconds int  `mapstructure:"autosave_interval_seconds" validate:"min=1"`
	MinimumMinutes          int  `mapstructure:"minimum_minutes" validate:"min=1"`
	MinutesPerItem          int  `mapstructure:"minutes_per_item" validate:"min=1"`
	EnforceDeadline         bool `mapstructure:"enforce_deadline"`
}

type ReviewConfig struct {
	DailyLimit int `mapstructure:"daily_limit" validate:"min=0"`
}

type ReportsConfig struct {
	OutputDirectory string `mapstructure:"output_directory"`
	Template        string `mapstructure:"template" validate:"omitempty,file"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/studyprep")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit.requests_per_second", 0)
	v.SetDefault("server.rate_limit.burst", 0)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "local")
	v.SetDefault("database.username", "user")
	v.SetDefault("database.path", "")
	v.SetDefault("content.provider", "database")
	v.SetDefault("content.base_url", "")
	v.SetDefault("content.timeout_seconds", 10)
	v.SetDefault("content.max_retries", 3)
	v.SetDefault("assessment.autosave_interval_seconds", 30)
	v.SetDefault("assessment.minimum_minutes", 60)
	v.SetDefault("assessment.minutes_per_item", 3)
	v.SetDefault("assessment.enforce_deadline", false)
	v.SetDefault("review.daily_limit", 50)
	v.SetDefault("reports.output_directory", filepath.Join("outputs", "reports"))
	// Template is optional - if not specified, the embedded template is used
	v.SetDefault("reports.template", "")

	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}
	// The content API key is read from the environment only
	if err := v.BindEnv("content.api_key", "CONTENT_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind CONTENT_API_KEY environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}
