package config

import (
	"fmt"
	"os"
)

// ResolveDSN returns the store connection string. Supported sources:
// "config" (the dsn value) and "env" (the variable named by dsn_env), so
// credentials can stay out of the config file.
func (s StoreConfig) ResolveDSN() (string, error) {
	switch s.DSNSource {
	case "", "config":
		if s.DSN == "" && s.Driver != "memory" {
			return "", fmt.Errorf("dsn_source is 'config' but no dsn value provided")
		}
		return s.DSN, nil
	case "env":
		return resolveFromEnv(s.DSNEnv)
	default:
		return "", fmt.Errorf("unknown dsn_source: %q", s.DSNSource)
	}
}

func resolveFromEnv(envVar string) (string, error) {
	if envVar == "" {
		return "", fmt.Errorf("no environment variable name specified")
	}
	val := os.Getenv(envVar)
	if val == "" {
		return "", fmt.Errorf("environment variable %s is not set", envVar)
	}
	return val, nil
}
