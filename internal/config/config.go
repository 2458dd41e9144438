package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	ListenAddr      string
	CatalogPath     string
	InvoicesDir     string
	ExportsDir      string
	DefaultTaxRate  string
	LogLevel        string
	LogFormat       string
	OpenBrowser     bool
	PDFEnabled      bool
	ChromePath      string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		ListenAddr:      valueOrDefault(k.String("LISTEN_ADDR"), "127.0.0.1:8417"),
		CatalogPath:     valueOrDefault(k.String("CATALOG_PATH"), "products.csv"),
		InvoicesDir:     valueOrDefault(k.String("INVOICES_DIR"), "invoices"),
		ExportsDir:      valueOrDefault(k.String("EXPORTS_DIR"), "exports"),
		DefaultTaxRate:  valueOrDefault(k.String("DEFAULT_TAX_RATE"), "18.0"),
		LogLevel:        valueOrDefault(k.String("LOG_LEVEL"), "info"),
		LogFormat:       valueOrDefault(k.String("LOG_FORMAT"), "console"),
		OpenBrowser:     parseBool(k.String("OPEN_BROWSER"), true),
		PDFEnabled:      parseBool(k.String("PDF_ENABLED"), true),
		ChromePath:      strings.TrimSpace(k.String("CHROME_PATH")),
		ShutdownTimeout: parseDuration(k.String("SHUTDOWN_TIMEOUT"), "5s"),
	}

	if _, err := decimal.NewFromString(cfg.DefaultTaxRate); err != nil {
		return nil, fmt.Errorf("DEFAULT_TAX_RATE must be a decimal percentage: %w", err)
	}
	if err := ensureLoopback(cfg.ListenAddr); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ensureLoopback rejects listen addresses that would expose the billing
// API beyond the local machine.
func ensureLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("LISTEN_ADDR must be host:port: %w", err)
	}
	if strings.EqualFold(host, "localhost") {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return errors.New("LISTEN_ADDR must bind a loopback address")
	}
	return nil
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
