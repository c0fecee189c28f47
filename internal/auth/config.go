package auth

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Secret string `mapstructure:"Secret"`
	Issuer string `mapstructure:"Issuer"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.BindEnv("Secret", "JWT_SECRET")
	v.BindEnv("Issuer", "JWT_ISSUER")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Secret == "" {
		cfg.Secret = v.GetString("JWT_SECRET")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if len(cfg.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "cirrusdrive"
	}

	return &cfg, nil
}
