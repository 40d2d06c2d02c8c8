// Package metric provides Prometheus metrics for bunda-cli.
//
// The session core and the API client record into a Registry:
//
//   - bootstrap and verification outcomes
//   - token refreshes, logins and registrations
//   - API request counts and latencies
//
// The CLI has no scrape endpoint; `bunda-cli metrics` prints the
// registry in the Prometheus text format.
package metric
