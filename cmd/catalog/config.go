package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/Sternrassler/catalog-client/pkg/credential"
	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/Sternrassler/catalog-client/pkg/pagination"
	"github.com/Sternrassler/catalog-client/pkg/ratelimit"
	"github.com/Sternrassler/catalog-client/pkg/transport"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const defaultTokenURL = "https://accounts.spotify.com/api/token"

// settings is the resolved configuration: defaults, then config file, then
// CATALOG_* environment, then flags.
type settings struct {
	BaseURL        string  `mapstructure:"base_url"`
	TokenURL       string  `mapstructure:"token_url"`
	ClientID       string  `mapstructure:"client_id"`
	ClientSecret   string  `mapstructure:"client_secret"`
	AccessToken    string  `mapstructure:"access_token"`
	RedisAddr      string  `mapstructure:"redis_addr"`
	UserAgent      string  `mapstructure:"user_agent"`
	Port           int     `mapstructure:"port"`
	MaxConcurrency int     `mapstructure:"max_concurrency"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	MaxRetries     int     `mapstructure:"max_retries"`
	LogLevel       string  `mapstructure:"log_level"`
	LogPretty      bool    `mapstructure:"log_pretty"`
	Output         string  `mapstructure:"output"`
}

func setDefaults(v *viper.Viper) {
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("config", "")
	v.SetDefault("base_url", transport.DefaultBaseURL)
	v.SetDefault("token_url", defaultTokenURL)
	v.SetDefault("client_id", "")
	v.SetDefault("client_secret", "")
	v.SetDefault("access_token", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("user_agent", "catalog-client/"+version)
	v.SetDefault("port", 8080)
	v.SetDefault("max_concurrency", 4)
	v.SetDefault("rate_limit", 10.0)
	v.SetDefault("max_retries", 3)
	v.SetDefault("log_level", string(logging.LevelWarn))
	v.SetDefault("log_pretty", false)
	v.SetDefault("output", "table")
}

// readConfig loads the config file named by --config or CATALOG_CONFIG.
func readConfig(v *viper.Viper) error {
	file := v.GetString("config")
	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", file, err)
	}
	return nil
}

func loadSettings(v *viper.Viper) (settings, error) {
	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decode config: %w", err)
	}
	switch s.Output {
	case "table", "json", "yaml":
	default:
		return s, fmt.Errorf("unsupported output format %q (want table, json or yaml)", s.Output)
	}
	return s, nil
}

// stack is a ready-to-use client plus the resources it holds.
type stack struct {
	client *catalog.Client
	redis  *redis.Client
}

// Close releases the Redis connection, if any.
func (s *stack) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

// newStack wires transport, rate limit tracker and credentials from s.
func newStack(ctx context.Context, s settings) (*stack, error) {
	st := &stack{}

	if s.RedisAddr != "" {
		st.redis = redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		if err := st.redis.Ping(ctx).Err(); err != nil {
			st.redis.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", s.RedisAddr, err)
		}
	}

	tcfg := transport.DefaultConfig(s.BaseURL, s.UserAgent)
	tcfg.MaxRetries = s.MaxRetries
	tcfg.RateLimit = s.RateLimit
	tcfg.Tracker = ratelimit.NewTracker(st.redis, logging.NewLogger("ratelimit"))
	h, err := transport.New(tcfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("create transport: %w", err)
	}

	provider, err := newProvider(s, st.redis)
	if err != nil {
		st.Close()
		return nil, err
	}

	ccfg := catalog.DefaultConfig()
	ccfg.MaxConcurrency = s.MaxConcurrency
	ccfg.Collector = pagination.DefaultConfig()
	ccfg.Collector.MaxConcurrency = s.MaxConcurrency

	st.client, err = catalog.New(h, provider, ccfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("create client: %w", err)
	}
	return st, nil
}

var errNoCredentials = errors.New("no credentials configured: set access_token or client_id and client_secret")

func newProvider(s settings, redisClient *redis.Client) (credential.Provider, error) {
	if s.AccessToken != "" {
		return credential.NewStatic(s.AccessToken, time.Time{}), nil
	}
	if s.ClientID == "" || s.ClientSecret == "" {
		return nil, errNoCredentials
	}

	cfg := credential.ClientCredentialsConfig{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		TokenURL:     s.TokenURL,
		ExpiryMargin: credential.DefaultExpiryMargin,
	}
	if redisClient != nil {
		cfg.Store = credential.NewRedisStore(redisClient)
	}

	provider, err := credential.NewClientCredentials(cfg, logging.NewLogger("credential"))
	if err != nil {
		return nil, fmt.Errorf("create credential provider: %w", err)
	}
	return provider, nil
}
