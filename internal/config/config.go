package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Recaptcha RecaptchaConfig
	SMTP      SMTPConfig
	Content   ContentConfig
	Bootstrap BootstrapConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SessionConfig struct {
	// Secret signs session tokens.
	Secret string `mapstructure:"secret"`
	// DefaultTTLHours bounds sessions when the policy disables the sliding
	// timeout; the transport still needs some upper lifetime.
	DefaultTTLHours int `mapstructure:"default_ttl_hours"`
	// ChallengeTTLSeconds bounds how long a pending OTP challenge stays
	// answerable.
	ChallengeTTLSeconds int `mapstructure:"challenge_ttl_seconds"`
}

type RecaptchaConfig struct {
	Secret string `mapstructure:"secret"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type ContentConfig struct {
	// MasterKey is both the licence key that unlocks the protected content
	// viewer and the Vigenère key used to decrypt archived content.
	MasterKey string `mapstructure:"master_key"`
}

type BootstrapConfig struct {
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeoutSeconds", 30)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("session.default_ttl_hours", 24)
	viper.SetDefault("session.challenge_ttl_seconds", 300)
	viper.SetDefault("bootstrap.admin_username", "admin")
}
