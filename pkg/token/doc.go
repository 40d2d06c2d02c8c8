// Package token inspects bearer tokens without talking to the server.
//
// Two token shapes are understood:
//
//   - Personal access tokens: "<id>|<secret>", opaque to the client
//   - JWTs: three dot-separated segments; claims are decoded but the
//     signature is NOT verified, since the client never holds the key
//
// Nothing here decides whether a session is valid. Only the server can
// do that; this package feeds local status output and logs.
package token
