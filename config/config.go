// Package config loads crate feature switches from file and environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/zoobzio/crate"
)

// Keys read from configuration.
const (
	KeyOrderMapEntries = "features.order_map_entries_by_keys"
	KeyAcceptSingle    = "features.accept_single_value_as_array"
)

// EnvPrefix prefixes environment overrides, e.g.
// CRATE_FEATURES_ORDER_MAP_ENTRIES_BY_KEYS=true.
const EnvPrefix = "CRATE"

// Load reads feature switches using viper.
// Environment > config file > defaults precedence. An empty path skips the
// file.
func Load(path string) (crate.Features, error) {
	v := viper.New()

	v.SetDefault(KeyOrderMapEntries, false)
	v.SetDefault(KeyAcceptSingle, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return crate.Features{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return crate.Features{
		OrderMapEntriesByKeys:    v.GetBool(KeyOrderMapEntries),
		AcceptSingleValueAsArray: v.GetBool(KeyAcceptSingle),
	}, nil
}
