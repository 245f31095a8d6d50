// Package config loads the assistant's settings from .env files and the
// environment. Command-line flags are applied on top by the cmd package.
package config
