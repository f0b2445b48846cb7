// Package config provides the crawl configuration, its defaults, and the
// loaders for the .transitcrawl YAML file and TRANSITCRAWL_* environment
// variables (optionally read from a .env file).
package config
