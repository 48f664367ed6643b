package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func required() map[string]string {
	return map[string]string{
		"DISCORD_TOKEN":  "token",
		"SESSION_SECRET": "secret",
		"DATABASE_URL":   ":memory:",
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(required())
	require.NoError(t, err)
	require.Equal(t, ":memory:", cfg.Database.URL)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, "es", cfg.Locale)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, 2*time.Minute, cfg.KeepAliveInterval)
	require.Equal(t, "Warzone Team Finder Bot", cfg.ServiceName)
	require.Empty(t, cfg.InviteURL())
}

func TestLoadFrom_MissingRequired(t *testing.T) {
	for _, name := range []string{"DISCORD_TOKEN", "SESSION_SECRET", "DATABASE_URL"} {
		t.Run(name, func(t *testing.T) {
			environ := required()
			delete(environ, name)
			_, err := LoadFrom(environ)
			require.ErrorContains(t, err, name)
		})
	}
}

func TestLoadFrom_Validation(t *testing.T) {
	environ := required()
	environ["LOG_FORMAT"] = "xml"
	_, err := LoadFrom(environ)
	require.ErrorContains(t, err, "LOG_FORMAT")

	environ = required()
	environ["KEEPALIVE_INTERVAL"] = "0s"
	_, err = LoadFrom(environ)
	require.ErrorContains(t, err, "KEEPALIVE_INTERVAL")
}

func TestInviteURL(t *testing.T) {
	environ := required()
	environ["DISCORD_APP_ID"] = "42"
	cfg, err := LoadFrom(environ)
	require.NoError(t, err)
	require.Contains(t, cfg.InviteURL(), "client_id=42")
	require.Contains(t, cfg.InviteURL(), "applications.commands")
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TEAMFINDER_DOTENV_CHECK=yes\n"), 0o600))
	t.Setenv("TEAMFINDER_DOTENV_CHECK", "")
	require.NoError(t, os.Unsetenv("TEAMFINDER_DOTENV_CHECK"))
	require.NoError(t, LoadDotEnv(path))
	require.Equal(t, "yes", os.Getenv("TEAMFINDER_DOTENV_CHECK"))
}
