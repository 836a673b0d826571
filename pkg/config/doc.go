// Package config loads configuration structs from the environment.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11. The
// default .env file is read once per process if present; further files can be
// loaded with LoadEnv. Each configuration type is parsed once and cached:
//
//	type Config struct {
//		ChargeTTL time.Duration `env:"METER_CHARGE_TTL,required"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Types implementing Validator are validated after parsing. A failed load is
// not cached, so a later call parses the environment again. ResetCache clears
// the cache for tests.
package config
