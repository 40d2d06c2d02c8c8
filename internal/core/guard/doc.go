// Package guard protects views that require a signed-in user.
//
// A Guard re-verifies the session every time its view gains focus and
// redirects to the login view when verification fails. Results that
// arrive after the view lost focus or was unmounted are dropped.
package guard
