// Package adaptive seals small values at rest.
//
// The AEAD is picked per platform: AES-256-GCM where the CPU accelerates
// AES, ChaCha20-Poly1305 elsewhere. Keys come from a passphrase through
// Argon2id, so nothing secret has to be stored next to the data.
//
// Sealed output is self-describing:
//
//	version(1) | algorithm(1) | nonce | ciphertext+tag
//
// which lets a value sealed on one machine be opened on another.
package adaptive
