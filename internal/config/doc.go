// Package config defines the downloader settings and helpers to load,
// validate and save them in YAML format.
package config
