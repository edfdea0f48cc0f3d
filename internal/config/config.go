package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "CONFIG_FILE"

// Config defines the parkpay service configuration. Values come from an
// optional YAML file (CONFIG_FILE) and are overridden by environment variables.
type Config struct {
	HTTP struct {
		Port string `yaml:"port"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		Addr                    string `yaml:"addr"`
		Password                string `yaml:"password"`
		ActiveSessionTTLMinutes int    `yaml:"active_session_ttl_minutes"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret       string `yaml:"jwt_secret"`
		TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
		BcryptCost      int    `yaml:"bcrypt_cost"`
	} `yaml:"auth"`
	Gateway struct {
		PartnerCode    string `yaml:"partner_code"`
		AccessKey      string `yaml:"access_key"`
		SecretKey      string `yaml:"secret_key"`
		Endpoint       string `yaml:"endpoint"`
		RedirectURL    string `yaml:"redirect_url"`
		IPNURL         string `yaml:"ipn_url"`
		RequestType    string `yaml:"request_type"`
		Lang           string `yaml:"lang"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"gateway"`
	Wallet struct {
		Currency string `yaml:"currency"`
	} `yaml:"wallet"`
}

// Load reads the YAML file (when CONFIG_FILE is set), applies env overrides
// and validates the required fields.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.Redis.ActiveSessionTTLMinutes = 24 * 60
	cfg.Auth.TokenTTLMinutes = 60
	cfg.Gateway.TimeoutSeconds = 10
	cfg.Wallet.Currency = "VND"

	if path := os.Getenv(configPathEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: decode yaml: %w", err)
		}
	}

	overrideString(&cfg.HTTP.Port, "HTTP_PORT")
	overrideString(&cfg.Database.DSN, "POSTGRES_DSN")
	overrideString(&cfg.Redis.Addr, "REDIS_ADDR")
	overrideString(&cfg.Redis.Password, "REDIS_PASSWORD")
	overrideInt(&cfg.Redis.ActiveSessionTTLMinutes, "ACTIVE_SESSION_TTL_MINUTES")
	overrideString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	overrideInt(&cfg.Auth.TokenTTLMinutes, "TOKEN_TTL_MINUTES")
	overrideInt(&cfg.Auth.BcryptCost, "BCRYPT_COST")
	overrideString(&cfg.Gateway.PartnerCode, "GATEWAY_PARTNER_CODE")
	overrideString(&cfg.Gateway.AccessKey, "GATEWAY_ACCESS_KEY")
	overrideString(&cfg.Gateway.SecretKey, "GATEWAY_SECRET_KEY")
	overrideString(&cfg.Gateway.Endpoint, "GATEWAY_ENDPOINT")
	overrideString(&cfg.Gateway.RedirectURL, "GATEWAY_REDIRECT_URL")
	overrideString(&cfg.Gateway.IPNURL, "GATEWAY_IPN_URL")
	overrideString(&cfg.Gateway.RequestType, "GATEWAY_REQUEST_TYPE")
	overrideString(&cfg.Gateway.Lang, "GATEWAY_LANG")
	overrideInt(&cfg.Gateway.TimeoutSeconds, "GATEWAY_TIMEOUT_SECONDS")
	overrideString(&cfg.Wallet.Currency, "WALLET_CURRENCY")

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("config: jwt secret required")
	}
	if strings.TrimSpace(cfg.Gateway.SecretKey) == "" {
		return nil, errors.New("config: gateway secret key required")
	}
	return cfg, nil
}

// HTTPAddress returns a :port style listen address.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// ActiveSessionTTL returns the redis cache TTL for active sessions.
func (c *Config) ActiveSessionTTL() time.Duration {
	return time.Duration(c.Redis.ActiveSessionTTLMinutes) * time.Minute
}

// TokenTTL returns the JWT lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

// GatewayTimeout returns the bound on outbound gateway calls.
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
}

func overrideString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		*target = val
	}
}

func overrideInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			*target = parsed
		}
	}
}
