// Package tlsroots builds the trust store for outgoing HTTPS requests.
//
// The system roots are extended with PEM bundles given on the command
// line or in the configuration, which is how staging backends behind a
// private CA are reached.
package tlsroots
