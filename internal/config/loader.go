package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces every configuration key in the environment.
const envPrefix = "STEALTH_"

// plainEnv maps the unprefixed variables the deployment platform sets.
var plainEnv = map[string]string{
	"PORT":          "port",
	"DATABASE_URL":  "database_url",
	"DATABASE_NAME": "database_name",
}

// listKeys are read from the environment as comma-separated values.
var listKeys = map[string]bool{
	"allowed_hosts": true,
	"cors_origins":  true,
}

func splitList(v string) []string {
	out := []string{}
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load builds a Config by layering, lowest precedence first:
//  1. defaults (New())
//  2. YAML file named by STEALTH_CONFIG, if set
//  3. STEALTH_* env vars (STEALTH_LOG_LEVEL -> log_level)
//  4. PORT, DATABASE_URL, DATABASE_NAME
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	prefixed := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		name := strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if listKeys[name] {
			return name, splitList(value)
		}
		return name, value
	})
	if err := k.Load(prefixed, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	plain := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		name, ok := plainEnv[key]
		if !ok || value == "" {
			return "", nil
		}
		return name, value
	})
	if err := k.Load(plain, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
