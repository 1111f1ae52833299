// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-engine/internal/eutils"
	"github.com/pdiddy/pubmed-engine/pkg/types"
)

const envPrefix = "PUBMED_ENGINE"

// setupViper registers defaults and environment bindings on v. Every key
// needs a default so AutomaticEnv can see it during Unmarshal.
func setupViper(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("eutils.base_url", eutils.DefaultBaseURL)
	v.SetDefault("eutils.api_key", "")
	v.SetDefault("eutils.email", "")
	v.SetDefault("eutils.tool", eutils.DefaultTool)
	v.SetDefault("eutils.timeout", eutils.DefaultTimeout)
	v.SetDefault("eutils.user_agent", "pubmed-engine/"+version)
	v.SetDefault("eutils.rate_limit", 0.0)
	v.SetDefault("eutils.max_retries", 3)
	v.SetDefault("eutils.batch_size", 200)
	v.SetDefault("eutils.workers", 3)
	v.SetDefault("eutils.max_results", eutils.DefaultMaxResults)

	v.SetDefault("library.dir", "library")
	v.SetDefault("library.max_results", 20)

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_results", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	// NCBI's own variable names are accepted too.
	_ = v.BindEnv("eutils.api_key", envPrefix+"_EUTILS_API_KEY", "NCBI_API_KEY")
	_ = v.BindEnv("eutils.email", envPrefix+"_EUTILS_EMAIL", "NCBI_EMAIL")
}

// loadConfig decodes v into a Config.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var c types.Config
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding configuration: %w", err)
	}
	if c.Eutils.Workers < 1 {
		return c, fmt.Errorf("eutils.workers must be at least 1, got %d", c.Eutils.Workers)
	}
	if c.Eutils.BatchSize < 1 {
		return c, fmt.Errorf("eutils.batch_size must be at least 1, got %d", c.Eutils.BatchSize)
	}
	return c, nil
}
