// Package config fills env-tagged structs from the process environment
// using caarlos0/env.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from the process environment according to its `env`,
// `envDefault` and `envSeparator` tags.
func Load(cfg any) error {
	return parse(cfg, env.Options{})
}

// LoadFrom is Load over a fixed set of variables instead of the process
// environment.
func LoadFrom(cfg any, environ map[string]string) error {
	return parse(cfg, env.Options{Environment: environ})
}

func parse(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// FirstSet scans keys in order and returns the first non-blank value with
// the key that held it.
func FirstSet(keys ...string) (value, key string, ok bool) {
	for _, k := range keys {
		v, found := os.LookupEnv(k)
		if v = strings.TrimSpace(v); found && v != "" {
			return v, k, true
		}
	}
	return "", "", false
}
