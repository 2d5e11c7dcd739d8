package configs

import (
	"flag"
	"os"

	"github.com/hilthontt/relay/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file location from the --config
// flag, the RELAY_CONFIG env var, or a set of candidate paths. An empty
// result means "defaults only", which is a valid way to run the relay.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("RELAY_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"/etc/relay/config.yaml",
			"/app/config.yaml",
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
