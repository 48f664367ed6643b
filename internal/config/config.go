// Package config reads process configuration from the environment, after loading an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Database struct {
	URL string `env:"DATABASE_URL,required,notEmpty"`
}

type Config struct {
	Database

	DiscordToken  string `env:"DISCORD_TOKEN,required,notEmpty"`
	SessionSecret string `env:"SESSION_SECRET,required,notEmpty"`
	GuildID       string `env:"DISCORD_GUILD_ID"`
	AppID         string `env:"DISCORD_APP_ID"`

	HTTPAddr          string        `env:"HTTP_ADDR" envDefault:":8080"`
	Locale            string        `env:"BOT_LOCALE" envDefault:"es"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string        `env:"LOG_FORMAT" envDefault:"json"`
	KeepAliveInterval time.Duration `env:"KEEPALIVE_INTERVAL" envDefault:"2m"`
	ServiceName       string        `env:"SERVICE_NAME" envDefault:"Warzone Team Finder Bot"`
}

// LoadDotEnv loads path into the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() (Config, error) {
	return parse[Config](env.Options{})
}

// LoadDatabase reads only what the migrate command needs.
func LoadDatabase() (Database, error) {
	return parse[Database](env.Options{})
}

// LoadFrom parses cfg from environ instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse[Config](env.Options{Environment: environ})
}

func parse[T any](opts env.Options) (T, error) {
	var cfg T
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if v, ok := any(&cfg).(interface{ validate() error }); ok {
		if err := v.validate(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.KeepAliveInterval <= 0 {
		return fmt.Errorf("KEEPALIVE_INTERVAL must be positive, got %s", c.KeepAliveInterval)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// InviteURL is the OAuth2 link that adds the bot to a server, or "" without an app id.
func (c Config) InviteURL() string {
	if c.AppID == "" {
		return ""
	}
	// View Channels, Send Messages, Embed Links, Read Message History, Use Application Commands
	const permissions int64 = 1024 | 2048 | 16384 | 65536 | 2147483648
	return fmt.Sprintf("https://discord.com/oauth2/authorize?client_id=%s&permissions=%d&scope=bot%%20applications.commands", c.AppID, permissions)
}
