// Package config loads the gateway's startup configuration from the
// environment. Configuration is read once at boot and never re-read.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "MCPWP_"

// Config is everything the gateway needs to start.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// WordPressURL is the base URL of the remote site, without /wp-json.
	WordPressURL string
	// WordPressUser and WordPressAppPassword authenticate against the
	// WordPress REST API.
	WordPressUser        string
	WordPressAppPassword string
	// BearerToken optionally protects the protocol endpoint.
	BearerToken string
	// SessionTimeout closes sessions idle for this long.
	SessionTimeout time.Duration
	// StreamByDefault answers with event streams when clients express no
	// preference.
	StreamByDefault bool
}

// Load reads MCPWP_* environment variables. Required: MCPWP_WP_URL,
// MCPWP_WP_USER, MCPWP_WP_APP_PASSWORD.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("config: reading environment: %w", err)
	}

	cfg := &Config{
		Addr:                 k.String("addr"),
		WordPressURL:         strings.TrimRight(k.String("wp_url"), "/"),
		WordPressUser:        k.String("wp_user"),
		WordPressAppPassword: k.String("wp_app_password"),
		BearerToken:          k.String("bearer_token"),
		SessionTimeout:       30 * time.Minute,
		StreamByDefault:      k.Bool("stream"),
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8787"
	}
	if raw := k.String("session_timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("config: invalid MCPWP_SESSION_TIMEOUT %q: %w", raw, err)
		}
		cfg.SessionTimeout = d
	}

	for key, val := range map[string]string{
		"MCPWP_WP_URL":          cfg.WordPressURL,
		"MCPWP_WP_USER":         cfg.WordPressUser,
		"MCPWP_WP_APP_PASSWORD": cfg.WordPressAppPassword,
	} {
		if val == "" {
			return nil, fmt.Errorf("config: %s is required", key)
		}
	}
	return cfg, nil
}
