package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"POSLEDGER_APP_NAME":                os.Getenv("POSLEDGER_APP_NAME"),
		"POSLEDGER_APP_ENV":                 os.Getenv("POSLEDGER_APP_ENV"),
		"POSLEDGER_APP_PORT":                os.Getenv("POSLEDGER_APP_PORT"),
		"POSLEDGER_DATABASE_HOST":           os.Getenv("POSLEDGER_DATABASE_HOST"),
		"POSLEDGER_DATABASE_PORT":           os.Getenv("POSLEDGER_DATABASE_PORT"),
		"POSLEDGER_DATABASE_USER":           os.Getenv("POSLEDGER_DATABASE_USER"),
		"POSLEDGER_DATABASE_PASSWORD":       os.Getenv("POSLEDGER_DATABASE_PASSWORD"),
		"POSLEDGER_DATABASE_DBNAME":         os.Getenv("POSLEDGER_DATABASE_DBNAME"),
		"POSLEDGER_DATABASE_SSLMODE":        os.Getenv("POSLEDGER_DATABASE_SSLMODE"),
		"POSLEDGER_DATABASE_MAX_OPEN_CONNS": os.Getenv("POSLEDGER_DATABASE_MAX_OPEN_CONNS"),
		"POSLEDGER_DATABASE_MAX_IDLE_CONNS": os.Getenv("POSLEDGER_DATABASE_MAX_IDLE_CONNS"),
		"POSLEDGER_JWT_SECRET":              os.Getenv("POSLEDGER_JWT_SECRET"),
		"POSLEDGER_POS_PAGE_SIZE":           os.Getenv("POSLEDGER_POS_PAGE_SIZE"),
		"POSLEDGER_POS_STUB_ENABLED":        os.Getenv("POSLEDGER_POS_STUB_ENABLED"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "posledger-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "posledger", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 100, cfg.POS.PageSize)
	})

	t.Run("loads values from environment variables", func(t *testing.T) {
		clearEnv()
		os.Setenv("POSLEDGER_APP_NAME", "test-app")
		os.Setenv("POSLEDGER_APP_ENV", "testing")
		os.Setenv("POSLEDGER_APP_PORT", "9000")
		os.Setenv("POSLEDGER_DATABASE_HOST", "testdb.local")
		os.Setenv("POSLEDGER_DATABASE_PORT", "5433")
		os.Setenv("POSLEDGER_DATABASE_USER", "testuser")
		os.Setenv("POSLEDGER_DATABASE_PASSWORD", "testpass")
		os.Setenv("POSLEDGER_DATABASE_DBNAME", "testdb")
		os.Setenv("POSLEDGER_DATABASE_SSLMODE", "require")
		os.Setenv("POSLEDGER_POS_PAGE_SIZE", "250")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 250, cfg.POS.PageSize)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("POSLEDGER_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("POSLEDGER_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("POSLEDGER_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("production requires jwt secret", func(t *testing.T) {
		clearEnv()
		os.Setenv("POSLEDGER_APP_ENV", "production")
		os.Setenv("POSLEDGER_DATABASE_PASSWORD", "prodpass")
		os.Setenv("POSLEDGER_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret")
	})

	t.Run("production rejects stub gateways", func(t *testing.T) {
		clearEnv()
		os.Setenv("POSLEDGER_APP_ENV", "production")
		os.Setenv("POSLEDGER_JWT_SECRET", "0123456789abcdef0123456789abcdef")
		os.Setenv("POSLEDGER_DATABASE_PASSWORD", "prodpass")
		os.Setenv("POSLEDGER_DATABASE_SSLMODE", "require")
		os.Setenv("POSLEDGER_POS_STUB_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stub_enabled")
	})
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "sync",
		Password: "p@ss/word",
		DBName:   "posledger",
		SSLMode:  "require",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// special characters in the password must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}
