// Package shutdown runs cleanup hooks when the CLI exits.
//
// Hooks close the local store, dispose the session and stop watchers.
// They run once, newest first, either when the command finishes normally
// or when SIGINT/SIGTERM cancels the signal context.
package shutdown
