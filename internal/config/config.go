package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config holds all application settings.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	OAuth    OAuthConfig
	Frontend FrontendConfig
	Email    EmailConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig contains unified Redis connection settings.
// Supported modes: single, sentinel, cluster.
type RedisConfig struct {
	// Mode: "single", "sentinel" or "cluster". Defaults to "single".
	Mode string `mapstructure:"mode"`

	// Addrs: list of host:port addresses, used in every mode.
	Addrs []string `mapstructure:"addrs"`

	// Addr: single-address fallback when Addrs is empty.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: master server name, sentinel mode only.
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// JWTConfig contains token signing settings. Access and refresh signing
// keys are derived from Secret, so one value covers both token kinds.
type JWTConfig struct {
	Secret            string `mapstructure:"secret"`
	AccessExpiryMin   int    `mapstructure:"accessExpiryMin"`
	RefreshExpiryDays int    `mapstructure:"refreshExpiryDays"`
}

// OAuthConfig contains per-provider OAuth client settings.
type OAuthConfig struct {
	StateExpirySec int `mapstructure:"stateExpirySec"`

	Google OAuthClientConfig `mapstructure:"google"`
	Kakao  OAuthClientConfig `mapstructure:"kakao"`
	Naver  OAuthClientConfig `mapstructure:"naver"`
}

// OAuthClientConfig identifies this application to one provider.
type OAuthClientConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

// Configured reports whether the provider has credentials set.
func (c *OAuthClientConfig) Configured() bool {
	return c.ClientID != "" && c.RedirectURI != ""
}

// FrontendConfig contains the URLs the callback handler redirects to.
type FrontendConfig struct {
	SuccessURL string `mapstructure:"success_url"`
	ErrorURL   string `mapstructure:"error_url"`
}

// EmailConfig contains outgoing mail settings.
type EmailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
}

// PostgresConnectionString builds the PostgreSQL connection string.
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from an optional file plus explicitly bound
// environment variables. Env vars win over file values.
func Load(configPath string) (*Config, error) {
	vip := viper.New()

	vip.SetDefault("server.port", "8080")
	vip.SetDefault("jwt.accessExpiryMin", 30)
	vip.SetDefault("jwt.refreshExpiryDays", 14)
	vip.SetDefault("oauth.stateExpirySec", 600)

	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.accessExpiryMin", "JWT_ACCESSEXPIRYMIN")
	vip.BindEnv("jwt.refreshExpiryDays", "JWT_REFRESHEXPIRYDAYS")

	vip.BindEnv("oauth.stateExpirySec", "OAUTH_STATEEXPIRYSEC")
	vip.BindEnv("oauth.google.client_id", "OAUTH_GOOGLE_CLIENT_ID")
	vip.BindEnv("oauth.google.client_secret", "OAUTH_GOOGLE_CLIENT_SECRET")
	vip.BindEnv("oauth.google.redirect_uri", "OAUTH_GOOGLE_REDIRECT_URI")
	vip.BindEnv("oauth.kakao.client_id", "OAUTH_KAKAO_CLIENT_ID")
	vip.BindEnv("oauth.kakao.client_secret", "OAUTH_KAKAO_CLIENT_SECRET")
	vip.BindEnv("oauth.kakao.redirect_uri", "OAUTH_KAKAO_REDIRECT_URI")
	vip.BindEnv("oauth.naver.client_id", "OAUTH_NAVER_CLIENT_ID")
	vip.BindEnv("oauth.naver.client_secret", "OAUTH_NAVER_CLIENT_SECRET")
	vip.BindEnv("oauth.naver.redirect_uri", "OAUTH_NAVER_REDIRECT_URI")

	vip.BindEnv("frontend.success_url", "FRONTEND_SUCCESS_URL")
	vip.BindEnv("frontend.error_url", "FRONTEND_ERROR_URL")

	vip.BindEnv("email.resend_api_key", "EMAIL_RESEND_API_KEY")
	vip.BindEnv("email.from_address", "EMAIL_FROM_ADDRESS")
	vip.BindEnv("email.from_name", "EMAIL_FROM_NAME")

	vip.BindEnv("server.port", "SERVER_PORT")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("[Config] File '%s' not found, falling back to environment variables", configPath)
			} else {
				log.Printf("[Config] Warning: failed to read config file '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("[Config] Database: %s@%s:%s/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
		log.Printf("[Config] Redis: mode=%s addr=%s", cfg.Redis.Mode, cfg.Redis.Addr)
		log.Printf("[Config] JWT secret set: %t", cfg.JWT.Secret != "")
		log.Printf("[Config] Providers: google=%t kakao=%t naver=%t",
			cfg.OAuth.Google.Configured(), cfg.OAuth.Kakao.Configured(), cfg.OAuth.Naver.Configured())
		log.Printf("[Config] Server port: %s", cfg.Server.Port)
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required in config (check JWT_SECRET env var)")
	}
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if !cfg.OAuth.Google.Configured() && !cfg.OAuth.Kakao.Configured() && !cfg.OAuth.Naver.Configured() {
		return nil, fmt.Errorf("at least one OAuth provider must be configured (check OAUTH_*_CLIENT_ID env vars)")
	}
	if cfg.Frontend.SuccessURL == "" || cfg.Frontend.ErrorURL == "" {
		return nil, fmt.Errorf("frontend redirect URLs are required in config (check FRONTEND_SUCCESS_URL, FRONTEND_ERROR_URL env vars)")
	}

	return &cfg, nil
}
