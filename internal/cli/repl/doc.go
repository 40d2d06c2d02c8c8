// Package repl implements the interactive shell.
//
// The shell keeps a stack of screens. Moving to a screen focuses it and
// leaving blurs it, which is what drives the session guard on protected
// screens: every focus re-verifies the session, and a failed check while
// the screen is still focused replaces it with the login screen.
package repl
