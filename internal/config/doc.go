// Package config loads and validates the pipeline configuration.
//
// Configuration comes from a YAML file overlaid with BNV_* environment
// variables; the environment always wins. The loaded Config is an explicit
// value handed to each orchestrator's constructor, never read from
// package-level state, so tests can run several destination roots in one
// process.
//
// Example usage:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.EnsureDirectories(); err != nil {
//	    log.Fatal(err)
//	}
package config
