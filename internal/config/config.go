// Package config holds runtime settings for the huecircle CLI shell.
package config

// Config holds runtime settings.
//
// Fields:
//   - StorePath: directory for the embedded database.
//   - InMemory: run against an ephemeral in-memory store.
//   - Scheme: deep-link scheme used for invite links.
//   - LogLevel: zerolog level name (debug, info, warn, error).
//   - ShareDisplayName: whether the demo consent service answers "opted in".
type Config struct {
	StorePath        string
	InMemory         bool
	Scheme           string
	LogLevel         string
	ShareDisplayName bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.StorePath = "./huecircle-data"
	c.InMemory = false
	c.Scheme = "huecircle"
	c.LogLevel = "info"
	c.ShareDisplayName = true
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present), environment, and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
