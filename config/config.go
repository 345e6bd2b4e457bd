// Package config loads environment variables and provides a typed Config used across the bot.
// It applies sensible defaults so the binary can run locally with minimal setup.
// The only hard requirement is the chat bot token; use Validate before starting.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const defaultAuthURL = "https://discordapp.com/oauth2/authorize?client_id=174449568304332800&scope=bot&permissions=19456"

type Config struct {
	// Chat platform
	BotToken string
	AuthURL  string

	// Reply editing
	EditThreshold time.Duration
	EditMax       int

	// Emote catalog
	RefreshInterval time.Duration

	// HTTP surface
	HTTPAddr string
}

// Load reads environment variables and applies defaults. It doesn't fail if the
// bot token is missing; use Validate() when you require a live connection.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.BotToken = os.Getenv("BOT_TOKEN")
	cfg.AuthURL = os.Getenv("AUTH_URL")
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}

	// EDIT_THRESHOLD is expressed in whole minutes.
	cfg.EditThreshold = time.Minute
	if v := os.Getenv("EDIT_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid EDIT_THRESHOLD (minutes): %q", v)
		}
		cfg.EditThreshold = time.Duration(n) * time.Minute
	}

	cfg.EditMax = 10
	if v := os.Getenv("EDIT_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid EDIT_MAX: %q", v)
		}
		cfg.EditMax = n
	}

	cfg.RefreshInterval = time.Hour
	if v := os.Getenv("EMOTE_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid EMOTE_REFRESH_INTERVAL: %q", v)
		}
		cfg.RefreshInterval = d
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	return cfg, nil
}

// Validate checks required fields for a live bot connection.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("missing BOT_TOKEN")
	}
	return nil
}
