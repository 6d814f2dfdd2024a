// Package config provides configuration management for go-guildhub.
package config

import (
	"log"
	"sync"
)

var AppVersion = "-unset-" // will be set at build time

const (
	// Web defaults
	DefaultWebPort    = 11980
	DefaultWebSSLPort = 19443

	// Article form limits
	DefaultTitleMaxLength  = 120       // runes
	DefaultContentMaxBytes = 64 * 1024 // 'N' KB max article body

	// Guild name cache
	DefaultGuildCacheSize   = 1024
	DefaultGuildCacheExpiry = 5 // minutes
)

// DefaultFullExtensions lists the goldmark extensions enabled for the full rendering profile
var DefaultFullExtensions = []string{
	"table",
	"strikethrough",
	"linkify",
	"tasklist",
	"definition",
	"footnote",
	"typographer",
}

// MainConfig holds the main configuration for go-guildhub
type MainConfig struct {
	// Mutex for thread-safe access
	mux sync.Mutex `yaml:"-"`

	// Web interface settings
	Web WebConfig `yaml:"web"`

	// Database settings
	Database DatabaseConfig `yaml:"database"`

	// Markdown rendering settings
	Markup MarkupConfig `yaml:"markup"`

	// Article form and guild lookup settings
	Articles ArticlesConfig `yaml:"articles"`

	AppVersion string `yaml:"-"` // Application version, set at build time
}

// WebConfig holds web interface configuration
type WebConfig struct {
	ListenPort     int      `yaml:"listen_port"`
	SSL            bool     `yaml:"ssl"`
	CertFile       string   `yaml:"cert_file,omitempty"`
	KeyFile        string   `yaml:"key_file,omitempty"`
	TrustedProxies []string `yaml:"trusted_proxies"`
	Debug          bool     `yaml:"debug"` // gin debug mode and verbose request logging
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	MainDB string `yaml:"main_db"` // Path to main database
}

// MarkupConfig controls the markdown renderer profiles
type MarkupConfig struct {
	FullExtensions []string `yaml:"full_extensions"` // extension names for the full profile
	FullHardWraps  bool     `yaml:"full_hard_wraps"`
	AllowRawHTML   bool     `yaml:"allow_raw_html"` // pass raw HTML blocks through (never for baseline)
}

// ArticlesConfig holds article form limits and guild lookup settings
type ArticlesConfig struct {
	TitleMaxLength      int `yaml:"title_max_length"`
	ContentMaxBytes     int `yaml:"content_max_bytes"`
	GuildCacheSize      int `yaml:"guild_cache_size"`
	GuildCacheExpiryMin int `yaml:"guild_cache_expiry_minutes"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	maincfg := &MainConfig{
		AppVersion: AppVersion, // Set application version

		Web: WebConfig{
			ListenPort:     DefaultWebPort,
			SSL:            false,
			TrustedProxies: []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		},
		Database: DatabaseConfig{
			MainDB: "data/guildhub.sq3",
		},
		Markup: MarkupConfig{
			FullExtensions: append([]string(nil), DefaultFullExtensions...),
			FullHardWraps:  true,
			AllowRawHTML:   false,
		},
		Articles: ArticlesConfig{
			TitleMaxLength:      DefaultTitleMaxLength,
			ContentMaxBytes:     DefaultContentMaxBytes,
			GuildCacheSize:      DefaultGuildCacheSize,
			GuildCacheExpiryMin: DefaultGuildCacheExpiry,
		},
	}

	maincfg.mux.Lock()
	log.Printf("MainConfig initialized (web port %d, db %s)", maincfg.Web.ListenPort, maincfg.Database.MainDB)
	maincfg.mux.Unlock()
	return maincfg
}

// applyDefaults fills zero values left by a partial config file
func (cfg *MainConfig) applyDefaults() {
	cfg.mux.Lock()
	defer cfg.mux.Unlock()
	if cfg.Web.ListenPort == 0 {
		cfg.Web.ListenPort = DefaultWebPort
	}
	if cfg.Database.MainDB == "" {
		cfg.Database.MainDB = "data/guildhub.sq3"
	}
	if cfg.Markup.FullExtensions == nil {
		cfg.Markup.FullExtensions = append([]string(nil), DefaultFullExtensions...)
	}
	if cfg.Articles.TitleMaxLength <= 0 {
		cfg.Articles.TitleMaxLength = DefaultTitleMaxLength
	}
	if cfg.Articles.ContentMaxBytes <= 0 {
		cfg.Articles.ContentMaxBytes = DefaultContentMaxBytes
	}
	if cfg.Articles.GuildCacheSize <= 0 {
		cfg.Articles.GuildCacheSize = DefaultGuildCacheSize
	}
	if cfg.Articles.GuildCacheExpiryMin <= 0 {
		cfg.Articles.GuildCacheExpiryMin = DefaultGuildCacheExpiry
	}
}
