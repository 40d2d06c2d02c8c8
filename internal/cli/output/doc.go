// Package output renders command results as a table, JSON or YAML, and
// shows a spinner while a request is in flight.
package output
