// Package config holds the bunda-cli configuration (~/.bunda/cli.yaml).
//
// Values are merged from defaults, the YAML file, BUNDA_* environment
// variables and command-line flags, in increasing priority.
package config
