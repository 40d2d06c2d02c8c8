// Package confloader layers configuration sources with koanf.
//
// Priority (highest to lowest):
//
//  1. Overrides (command-line flags)
//  2. Environment variables (BUNDA_ prefix)
//  3. Configuration file (YAML)
//  4. Defaults
//
// Environment variables map onto known keys first, so BUNDA_API_BASE_URL
// sets api.base_url rather than api.base.url. Watcher reports changes to
// the configuration file.
package confloader
