package config_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/config"
)

type defaultsConfig struct {
	Name    string        `env:"CFG_TEST_NAME" envDefault:"meterd"`
	Retries int           `env:"CFG_TEST_RETRIES" envDefault:"3"`
	TTL     time.Duration `env:"CFG_TEST_TTL" envDefault:"24h"`
}

type requiredConfig struct {
	TTL time.Duration `env:"CFG_TEST_REQUIRED_TTL,required"`
}

type validatedConfig struct {
	Store string `env:"CFG_TEST_STORE" envDefault:"memory"`
}

func (c validatedConfig) Validate() error {
	if c.Store != "memory" && c.Store != "redis" {
		return errors.New("unknown store")
	}
	return nil
}

type fileConfig struct {
	Value string   `env:"CFG_TEST_FILE_VALUE"`
	List  []string `env:"CFG_TEST_FILE_LIST" envSeparator:","`
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config.ResetCache()

		var cfg defaultsConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "meterd", cfg.Name)
		assert.Equal(t, 3, cfg.Retries)
		assert.Equal(t, 24*time.Hour, cfg.TTL)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("CFG_TEST_NAME", "custom")
		t.Setenv("CFG_TEST_TTL", "90s")

		var cfg defaultsConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "custom", cfg.Name)
		assert.Equal(t, 90*time.Second, cfg.TTL)
	})

	t.Run("cached per type", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("CFG_TEST_NAME", "first")

		var first defaultsConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("CFG_TEST_NAME", "second")
		var second defaultsConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "first", second.Name)

		config.ResetCache()
		var third defaultsConfig
		require.NoError(t, config.Load(&third))
		assert.Equal(t, "second", third.Name)
	})

	t.Run("missing required", func(t *testing.T) {
		config.ResetCache()

		var cfg requiredConfig
		err := config.Load(&cfg)
		require.ErrorIs(t, err, config.ErrParsingConfig)

		t.Setenv("CFG_TEST_REQUIRED_TTL", "1h")
		require.NoError(t, config.Load(&cfg), "failed loads are not cached")
		assert.Equal(t, time.Hour, cfg.TTL)
	})

	t.Run("validation", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("CFG_TEST_STORE", "etcd")

		var cfg validatedConfig
		require.ErrorIs(t, config.Load(&cfg), config.ErrInvalidConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		require.ErrorIs(t, config.Load[defaultsConfig](nil), config.ErrNilPointer)
	})

	t.Run("must load panics", func(t *testing.T) {
		config.ResetCache()
		assert.Panics(t, func() {
			var cfg requiredConfig
			config.MustLoad(&cfg)
		})
	})
}

func TestLoadEnv(t *testing.T) {
	config.ResetCache()
	// t.Setenv restores the original values after the test
	t.Setenv("CFG_TEST_FILE_VALUE", "")
	t.Setenv("CFG_TEST_FILE_LIST", "")
	require.NoError(t, os.Unsetenv("CFG_TEST_FILE_VALUE"))
	require.NoError(t, os.Unsetenv("CFG_TEST_FILE_LIST"))

	require.ErrorIs(t, config.LoadEnv("testdata/missing.env"), config.ErrLoadingEnv)
	require.NoError(t, config.LoadEnv("testdata/.env.test"))

	var cfg fileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "from_file", cfg.Value)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.List)

	t.Run("does not override set variables", func(t *testing.T) {
		t.Setenv("CFG_TEST_FILE_VALUE", "from_env")
		require.NoError(t, config.LoadEnv("testdata/.env.test"))
		assert.Equal(t, "from_env", os.Getenv("CFG_TEST_FILE_VALUE"))
	})
}
