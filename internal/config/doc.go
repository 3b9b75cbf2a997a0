// Package config loads application settings from an optional YAML file and
// LITPOSTER_-prefixed environment variables using viper, then validates them
// with go-playground/validator.
//
// Environment variables map to nested keys by replacing dots with
// underscores, so polling.max_attempts is read from
// LITPOSTER_POLLING_MAX_ATTEMPTS.
package config
