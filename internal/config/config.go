// Package config defines process configuration and loading.
//
// Conventions:
// - Defaults come from New; file and env layers override them.
// - External errors are wrapped via this package's sentinel kinds.
package config

import (
	"path/filepath"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DataDir is the base directory for all session files.
	DataDir string `koanf:"data_dir"`

	// DownloadDir is where the browser drops XML files. Defaults to
	// DataDir/xml.
	DownloadDir string `koanf:"download_dir"`

	// CoordinatesPath is the recorded-positions file. Defaults to
	// DataDir/positions.json.
	CoordinatesPath string `koanf:"coordinates_path"`

	// SessionLogPath is the structured session log file. Defaults to
	// DataDir/session.log.
	SessionLogPath string `koanf:"session_log_path"`

	// AuditLogPath is the append-only audit trail. Defaults to
	// DataDir/audit.log.
	AuditLogPath string `koanf:"audit_log_path"`

	// MissingLogPath is the missing-XML ledger. Defaults to
	// DataDir/missing_xml.log.
	MissingLogPath string `koanf:"missing_log_path"`

	// PortalURL overrides the consultation page URL.
	PortalURL string `koanf:"portal_url"`

	// Speed is the dwell speed level, 1 (slowest) to 5 (fastest).
	Speed int `koanf:"speed"`

	// BetweenInvoicesMS is the pause between invoices, in milliseconds.
	BetweenInvoicesMS int `koanf:"between_invoices_ms"`

	// DetectTimeoutMS bounds the download detection wait, in milliseconds.
	DetectTimeoutMS int `koanf:"detect_timeout_ms"`

	// MaxAttempts is the per-key attempt budget (initial try included).
	MaxAttempts int `koanf:"max_attempts"`

	// Headless runs the browser without a visible window.
	Headless bool `koanf:"headless"`

	// MetricsAddr, when set (e.g. ":9090"), serves Prometheus metrics.
	MetricsAddr string `koanf:"metrics_addr"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		DataDir:           ".",
		Speed:             3,
		BetweenInvoicesMS: 2000,
		DetectTimeoutMS:   10000,
		MaxAttempts:       3,
	}
}

// applyDerived fills path fields left empty from DataDir.
func (c *Config) applyDerived() {
	if c.DownloadDir == "" {
		c.DownloadDir = filepath.Join(c.DataDir, "xml")
	}
	if c.CoordinatesPath == "" {
		c.CoordinatesPath = filepath.Join(c.DataDir, "positions.json")
	}
	if c.SessionLogPath == "" {
		c.SessionLogPath = filepath.Join(c.DataDir, "session.log")
	}
	if c.AuditLogPath == "" {
		c.AuditLogPath = filepath.Join(c.DataDir, "audit.log")
	}
	if c.MissingLogPath == "" {
		c.MissingLogPath = filepath.Join(c.DataDir, "missing_xml.log")
	}
}

// BetweenInvoices returns the inter-invoice pause as a duration.
func (c *Config) BetweenInvoices() time.Duration {
	return time.Duration(c.BetweenInvoicesMS) * time.Millisecond
}

// DetectTimeout returns the detection window as a duration.
func (c *Config) DetectTimeout() time.Duration {
	return time.Duration(c.DetectTimeoutMS) * time.Millisecond
}
