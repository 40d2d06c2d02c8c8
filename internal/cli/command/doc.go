// Package command defines the bunda-cli commands on urfave/cli/v2.
//
// Every command that touches the session builds the same stack on first
// use: local storage, the token store, the API client and the session
// manager. The stack is torn down in reverse order when the app exits.
package command
