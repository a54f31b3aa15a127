// Package config handles loading and validation of the YAML service
// configuration.
package config
