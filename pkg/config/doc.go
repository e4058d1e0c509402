// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv for .env files and
// github.com/caarlos0/env/v11 for struct parsing. Each configuration type is
// parsed once and cached for the lifetime of the process, so components may
// call Load from their constructors without paying for repeated parsing.
//
//	var cfg subscription.Config
//	config.MustLoad(&cfg)
//
// Tests that change the environment use Reload or ResetCache.
package config
