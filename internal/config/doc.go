// Package config provides centralized configuration management for the
// panel assembly pipeline. It handles loading configuration from multiple
// sources, validation, and provides a type-safe API for accessing
// configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority; .env files are honored)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// An environment variable set to a non-empty value beats the file for the
// same key; a key the environment omits takes the file's value, including
// explicit zero values such as write_annual: false. Fields absent from both
// keep their defaults.
//
// # Environment Variables
//
// All environment variables follow the pattern PANEL_* for namespacing:
//
//	PANEL_FRED_API_KEY=...
//	PANEL_OUTPUT_DIR=./out
//	PANEL_LOGGING_LEVEL=info
//	PANEL_FETCH_MAX_ATTEMPTS=3
//
// # Series List
//
// The series list comes from the YAML file only; when none is configured,
// DefaultSeries supplies the standard population-impact set.
//
// # Validation
//
// All configuration is validated at load time: the API key must be present,
// base URLs must parse, retry and year bounds must be sane, and every series
// spec must name a known source, an id and a column.
package config
