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
	Inference  InferenceConfig  `mapstructure:"inference"`
	LocalCache LocalCacheConfig `mapstructure:"local_cache"`
	Templates  TemplatesConfig  `mapstructure:"templates"`
	Credits    CreditsConfig    `mapstructure:"credits"`
	Auth       AuthConfig       `mapstructure:"auth"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port" validate:"min=1,max=65535"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver" validate:"oneof=mysql postgres"`
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

// InferenceConfig selects the generative provider. APIKey is the global
// default; a per-user key stored in user_settings takes precedence.
type InferenceConfig struct {
	Provider         string `mapstructure:"provider" validate:"oneof=gemini openai"`
	APIKey           string `mapstructure:"api_key"`
	BaseURL          string `mapstructure:"base_url" validate:"omitempty,url"`
	TextModel        string `mapstructure:"text_model" validate:"required"`
	ImageModel       string `mapstructure:"image_model" validate:"required"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds" validate:"min=1"`
	MaxRetryAttempts uint   `mapstructure:"max_retry_attempts"`
}

type LocalCacheConfig struct {
	Backend   string      `mapstructure:"backend" validate:"oneof=file redis"`
	Directory string      `mapstructure:"directory" validate:"required_if=Backend file"`
	TTLHours  int         `mapstructure:"ttl_hours"`
	Redis     RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TemplatesConfig struct {
	// PromptsDirectory overrides the embedded prompt templates file by file.
	PromptsDirectory string `mapstructure:"prompts_directory" validate:"omitempty,readable_dir"`
}

type CreditsConfig struct {
	ChargeGrading bool `mapstructure:"charge_grading"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
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
		v.AddConfigPath("$HOME/.config/genius")
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
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "genius")
	v.SetDefault("database.username", "genius")
	v.SetDefault("inference.provider", "gemini")
	v.SetDefault("inference.text_model", "gemini-2.0-flash")
	v.SetDefault("inference.image_model", "gemini-2.0-flash-preview-image-generation")
	v.SetDefault("inference.timeout_seconds", 120)
	v.SetDefault("inference.max_retry_attempts", 2)
	v.SetDefault("local_cache.backend", "file")
	v.SetDefault("local_cache.directory", filepath.Join("cache", "local"))
	v.SetDefault("local_cache.ttl_hours", 24*30)
	v.SetDefault("local_cache.redis.addr", "localhost:6379")
	v.SetDefault("templates.prompts_directory", "")
	v.SetDefault("credits.charge_grading", false)

	// Secrets are bound to environment variables so they stay out of config files
	secrets := map[string]string{
		"inference.api_key":          "GENIUS_AI_API_KEY",
		"database.password":          "GENIUS_DB_PASSWORD",
		"auth.jwt_secret":            "GENIUS_JWT_SECRET",
		"local_cache.redis.password": "GENIUS_REDIS_PASSWORD",
	}
	for key, env := range secrets {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
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
