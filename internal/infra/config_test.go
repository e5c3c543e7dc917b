package infra

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"MC_KEYFILE", "MC_MOBILECOIND_URI", "MC_DEQS_URI", "BUDDY_API_LISTEN", "BUDDY_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
wallet:
  url: http://wallet:9090
  keyfile: /keys/account.json
quoting:
  url: ws://deqs:7000
tokens:
  - {id: 0, symbol: MOB, decimals: 12}
  - {id: 1, symbol: EUSD, decimals: 6}
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Wallet.URL != "http://wallet:9090" || cfg.Wallet.Keyfile != "/keys/account.json" {
		t.Errorf("wallet section not applied: %+v", cfg.Wallet)
	}
	if cfg.Wallet.ConnectRetries != 10 || cfg.Quoting.PageLimit != 100 {
		t.Errorf("defaults lost: retries=%d limit=%d", cfg.Wallet.ConnectRetries, cfg.Quoting.PageLimit)
	}
	if cfg.PollInterval() != 50*time.Millisecond || cfg.SettleDelay() != time.Second {
		t.Errorf("unexpected durations %s %s", cfg.PollInterval(), cfg.SettleDelay())
	}
	if len(cfg.Tokens) != 2 || cfg.Tokens[1].Symbol != "EUSD" {
		t.Errorf("tokens not parsed: %+v", cfg.Tokens)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "wallet:\n  keyfile: from-file.json\n")
	t.Setenv("MC_KEYFILE", "from-env.json")
	t.Setenv("MC_MOBILECOIND_URI", "https://wallet.example:443")
	t.Setenv("MC_DEQS_URI", "wss://deqs.example")
	t.Setenv("BUDDY_API_LISTEN", ":9999")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Wallet.Keyfile != "from-env.json" {
		t.Errorf("keyfile = %s", cfg.Wallet.Keyfile)
	}
	if cfg.Wallet.URL != "https://wallet.example:443" || cfg.Quoting.URL != "wss://deqs.example" {
		t.Errorf("urls = %s %s", cfg.Wallet.URL, cfg.Quoting.URL)
	}
	if cfg.API.Listen != ":9999" {
		t.Errorf("listen = %s", cfg.API.Listen)
	}
}

func TestLoadConfig_MissingFileUsesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MC_KEYFILE", "k.json")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Quoting.URL != "" {
		t.Errorf("quoting should default to disabled, got %s", cfg.Quoting.URL)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(c *Config) {}, ""},
		{"no keyfile", func(c *Config) { c.Wallet.Keyfile = "" }, "keyfile"},
		{"bad wallet url", func(c *Config) { c.Wallet.URL = "wallet:9090" }, "wallet daemon URL"},
		{"quoting over http", func(c *Config) { c.Quoting.URL = "http://deqs" }, "quoting service URL"},
		{"zero retries", func(c *Config) { c.Wallet.ConnectRetries = 0 }, "retries"},
		{"zero page", func(c *Config) { c.Quoting.PageLimit = 0 }, "page limit"},
		{"duplicate token", func(c *Config) {
			c.Tokens = []TokenMeta{{ID: 1, Symbol: "A"}, {ID: 1, Symbol: "B"}}
		}, "twice"},
		{"unnamed token", func(c *Config) { c.Tokens = []TokenMeta{{ID: 3}} }, "no symbol"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Wallet.Keyfile = "k.json"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUserAgent(t *testing.T) {
	prev := GetUserAgent()
	defer SetUserAgent(prev)

	SetUserAgent(DefaultUserAgent("1.2.3"))
	if ua := GetUserAgent(); !strings.HasPrefix(ua, AppName+"/1.2.3") {
		t.Errorf("unexpected user agent %q", ua)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "err", "boom")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"app":"buddy-go"`) {
		t.Errorf("unexpected output %s", out)
	}
}
