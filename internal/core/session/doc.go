// Package session holds the process-wide authentication state.
//
// A Manager is created once at start-up, bootstrapped with Init and torn
// down with Dispose. Everything that needs to know who is signed in reads
// State snapshots or subscribes to changes; nothing else writes the token
// store.
//
// State machine:
//
//	BOOTSTRAPPING ──► AUTHENTICATED ⇄ VERIFYING
//	      │                 │             │
//	      └────────────► UNAUTHENTICATED ◄┘
//
// VerifyAuth confirms a cached session against the backend. A 401 gets
// exactly one token refresh and one retry; any other failure is treated
// as transient and leaves the session in place. Overlapping VerifyAuth
// calls share a single in-flight verification.
package session
