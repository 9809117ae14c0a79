package config

import (
	"flag"
	"os"

	"github.com/goccy/go-json"

	"github.com/lumela/huecircle/internal/flagx"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling; parsed
// values are copied into the runtime Config.
type jsonConfig struct {
	StorePath        *string `json:"store_path"`
	InMemory         *bool   `json:"in_memory"`
	Scheme           *string `json:"scheme"`
	LogLevel         *string `json:"log_level"`
	ShareDisplayName *bool   `json:"share_display_name"`
}

// parseJSON overlays cfg with values from the file named by -c/-config.
// Absent file path means no JSON layer. Read or parse failures panic;
// a misconfigured shell should not limp along silently.
func parseJSON(cfg *Config) {
	path := flagx.JSONConfigPath()
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}
	if jc.StorePath != nil {
		cfg.StorePath = *jc.StorePath
	}
	if jc.InMemory != nil {
		cfg.InMemory = *jc.InMemory
	}
	if jc.Scheme != nil {
		cfg.Scheme = *jc.Scheme
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.ShareDisplayName != nil {
		cfg.ShareDisplayName = *jc.ShareDisplayName
	}
}

// parseEnv overlays cfg with HUECIRCLE_* environment variables.
func parseEnv(cfg *Config) {
	cfg.StorePath = flagx.EnvOrDefault("HUECIRCLE_STORE_PATH", cfg.StorePath)
	cfg.Scheme = flagx.EnvOrDefault("HUECIRCLE_SCHEME", cfg.Scheme)
	cfg.LogLevel = flagx.EnvOrDefault("HUECIRCLE_LOG_LEVEL", cfg.LogLevel)
	if v := os.Getenv("HUECIRCLE_IN_MEMORY"); v == "1" || v == "true" {
		cfg.InMemory = true
	}
}

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags:
//
//	-d string   store directory
//	-m          in-memory store (data lost on exit)
//	-s string   deep-link scheme
//	-l string   log level
//
// Arguments are filtered through flagx.FilterArgs so flags owned by other
// components do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-m", "-s", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.StringVar(&cfg.StorePath, "d", cfg.StorePath, "store directory")
	fs.BoolVar(&cfg.InMemory, "m", cfg.InMemory, "use an in-memory store")
	fs.StringVar(&cfg.Scheme, "s", cfg.Scheme, "deep-link scheme")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
