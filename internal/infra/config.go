package infra

import (
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"buddy_go/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	uaMu             sync.RWMutex
	currentUserAgent = DefaultUserAgent("dev")
)

// GetUserAgent returns the User-Agent sent to the wallet daemon and the
// quoting service. (Thread-safe)
func GetUserAgent() string {
	uaMu.RLock()
	defer uaMu.RUnlock()
	return currentUserAgent
}

// SetUserAgent updates the global User-Agent string. (Thread-safe)
func SetUserAgent(ua string) {
	uaMu.Lock()
	defer uaMu.Unlock()
	currentUserAgent = ua
}

// DefaultUserAgent builds the agent string for a release version.
func DefaultUserAgent(version string) string {
	return fmt.Sprintf("%s/%s (%s; %s)", AppName, version, runtime.GOOS, runtime.GOARCH)
}

// TokenMeta is display metadata for a token; fees come from the network.
type TokenMeta struct {
	ID       domain.TokenID `yaml:"id"`
	Symbol   string         `yaml:"symbol"`
	Decimals uint32         `yaml:"decimals"`
}

// Config holds all application settings.
// After LoadConfig, environment variables override the file.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Wallet struct {
		URL            string  `yaml:"url"`
		Keyfile        string  `yaml:"keyfile"`
		RPCTimeoutMS   int     `yaml:"rpc_timeout_ms"`
		ConnectRetries int     `yaml:"connect_retries"`
		RequestsPerSec float64 `yaml:"requests_per_sec"`
	} `yaml:"wallet"`

	Quoting struct {
		URL       string `yaml:"url"` // empty disables the quoting service
		PageLimit int    `yaml:"page_limit"`
	} `yaml:"quoting"`

	Worker struct {
		PollIntervalMS int `yaml:"poll_interval_ms"`
		ErrorBackoffMS int `yaml:"error_backoff_ms"`
	} `yaml:"worker"`

	Swap struct {
		UTXOAttempts       int    `yaml:"utxo_attempts"`
		RetryBackoffMS     int    `yaml:"retry_backoff_ms"`
		StatusPollMS       int    `yaml:"status_poll_ms"`
		SettleDelayMS      int    `yaml:"settle_delay_ms"`
		InputFetchAttempts int    `yaml:"input_fetch_attempts"`
		MinFillFeeMultiple uint64 `yaml:"min_fill_fee_multiple"`
	} `yaml:"swap"`

	Tokens []TokenMeta `yaml:"tokens"`

	API struct {
		Listen string `yaml:"listen"`
	} `yaml:"api"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text | json
	} `yaml:"logging"`
}

// DefaultConfig returns a config with every tunable at its standard value.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = AppName
	cfg.App.Version = "dev"
	cfg.Wallet.URL = "http://127.0.0.1:9090"
	cfg.Wallet.RPCTimeoutMS = 10_000
	cfg.Wallet.ConnectRetries = 10
	cfg.Wallet.RequestsPerSec = 50
	cfg.Quoting.PageLimit = 100
	cfg.Worker.PollIntervalMS = 50
	cfg.Worker.ErrorBackoffMS = 500
	cfg.Swap.UTXOAttempts = 5
	cfg.Swap.RetryBackoffMS = 200
	cfg.Swap.StatusPollMS = 50
	cfg.Swap.SettleDelayMS = 1000
	cfg.Swap.InputFetchAttempts = 3
	cfg.Swap.MinFillFeeMultiple = 10
	cfg.API.Listen = "127.0.0.1:8080"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return &cfg
}

// LoadConfig reads the yaml file at path over the defaults, loads a .env
// file if present, applies environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Environment alone may be enough.
	default:
		return nil, err
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Wallet.Keyfile == "" {
		return fmt.Errorf("wallet keyfile is required (set MC_KEYFILE)")
	}
	if !hasScheme(c.Wallet.URL, "http", "https") {
		return fmt.Errorf("invalid wallet daemon URL: %s", c.Wallet.URL)
	}
	if c.Quoting.URL != "" && !hasScheme(c.Quoting.URL, "ws", "wss") {
		return fmt.Errorf("invalid quoting service URL: %s", c.Quoting.URL)
	}
	if c.Wallet.ConnectRetries <= 0 {
		return fmt.Errorf("connect retries must be positive")
	}
	if c.Quoting.PageLimit <= 0 {
		return fmt.Errorf("quote page limit must be positive")
	}
	if c.Worker.PollIntervalMS <= 0 || c.Worker.ErrorBackoffMS <= 0 {
		return fmt.Errorf("worker intervals must be positive")
	}
	if c.Swap.UTXOAttempts <= 0 || c.Swap.InputFetchAttempts <= 0 {
		return fmt.Errorf("swap attempts must be positive")
	}

	seen := make(map[domain.TokenID]bool, len(c.Tokens))
	for _, t := range c.Tokens {
		if seen[t.ID] {
			return fmt.Errorf("token %d configured twice", t.ID)
		}
		seen[t.ID] = true
		if t.Symbol == "" {
			return fmt.Errorf("token %d has no symbol", t.ID)
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.Logging.Level)
	}
	return nil
}

func hasScheme(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return true
		}
	}
	return false
}

// overrideWithEnv applies environment variables over the file values.
// The environment always wins.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("MC_KEYFILE"); v != "" {
		cfg.Wallet.Keyfile = v
	}
	if v := os.Getenv("MC_MOBILECOIND_URI"); v != "" {
		cfg.Wallet.URL = v
	}
	if v := os.Getenv("MC_DEQS_URI"); v != "" {
		cfg.Quoting.URL = v
	}
	if v := os.Getenv("BUDDY_API_LISTEN"); v != "" {
		cfg.API.Listen = v
	}
	if v := os.Getenv("BUDDY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Durations in the units the components take.

func (c *Config) RPCTimeout() time.Duration   { return ms(c.Wallet.RPCTimeoutMS) }
func (c *Config) PollInterval() time.Duration { return ms(c.Worker.PollIntervalMS) }
func (c *Config) ErrorBackoff() time.Duration { return ms(c.Worker.ErrorBackoffMS) }
func (c *Config) RetryBackoff() time.Duration { return ms(c.Swap.RetryBackoffMS) }
func (c *Config) StatusPoll() time.Duration   { return ms(c.Swap.StatusPollMS) }
func (c *Config) SettleDelay() time.Duration  { return ms(c.Swap.SettleDelayMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
