// Package api talks to the JagoanBunda REST backend.
//
// Client is the transport: JSON over net/http with bearer authentication,
// client-side rate limiting, a request id per call and error
// classification into *domain.Error. AuthService is the stateless
// authentication endpoint set on top of it; it never touches local storage.
package api
