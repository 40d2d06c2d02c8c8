package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Algorithm identifies the AEAD used for a sealed value.
type Algorithm byte

const (
	AESGCM   Algorithm = 1
	ChaCha20 Algorithm = 2
)

func (a Algorithm) String() string {
	switch a {
	case AESGCM:
		return "aes-256-gcm"
	case ChaCha20:
		return "chacha20-poly1305"
	default:
		return fmt.Sprintf("algorithm(%d)", byte(a))
	}
}

const (
	formatVersion = 1
	headerSize    = 2

	// KeySize is the key length every algorithm here expects.
	KeySize = 32

	// SaltSize is the recommended salt length for DeriveKey.
	SaltSize = 16
)

// Errors returned by Open.
var (
	ErrShortCiphertext = errors.New("adaptive: ciphertext too short")
	ErrVersion         = errors.New("adaptive: unsupported format version")
	ErrAlgorithm       = errors.New("adaptive: unknown algorithm")
	ErrAuth            = errors.New("adaptive: message authentication failed")
)

// Sealer encrypts and authenticates values with a fixed key.
// It is safe for concurrent use.
type Sealer struct {
	alg  Algorithm
	aead map[Algorithm]cipher.AEAD
}

// New returns a Sealer that seals with the preferred algorithm for this
// platform and can open values sealed with either algorithm.
func New(key []byte) (*Sealer, error) {
	return NewWithAlgorithm(key, Preferred())
}

// NewWithAlgorithm returns a Sealer that seals with alg.
func NewWithAlgorithm(key []byte, alg Algorithm) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("adaptive: key must be %d bytes, got %d", KeySize, len(key))
	}
	if alg != AESGCM && alg != ChaCha20 {
		return nil, ErrAlgorithm
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	chacha, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	return &Sealer{
		alg: alg,
		aead: map[Algorithm]cipher.AEAD{
			AESGCM:   gcm,
			ChaCha20: chacha,
		},
	}, nil
}

// Algorithm returns the algorithm used by Seal.
func (s *Sealer) Algorithm() Algorithm {
	return s.alg
}

// Seal encrypts plaintext. ad is authenticated but not stored; the same
// ad must be passed to Open.
func (s *Sealer) Seal(plaintext, ad []byte) ([]byte, error) {
	aead := s.aead[s.alg]

	out := make([]byte, headerSize+aead.NonceSize(), headerSize+aead.NonceSize()+len(plaintext)+aead.Overhead())
	out[0] = formatVersion
	out[1] = byte(s.alg)
	nonce := out[headerSize:]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("adaptive: read nonce: %w", err)
	}

	return aead.Seal(out, nonce, plaintext, ad), nil
}

// Open authenticates and decrypts a value produced by Seal.
func (s *Sealer) Open(sealed, ad []byte) ([]byte, error) {
	if len(sealed) < headerSize {
		return nil, ErrShortCiphertext
	}
	if sealed[0] != formatVersion {
		return nil, ErrVersion
	}
	aead, ok := s.aead[Algorithm(sealed[1])]
	if !ok {
		return nil, ErrAlgorithm
	}

	body := sealed[headerSize:]
	if len(body) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrShortCiphertext
	}
	nonce, ct := body[:aead.NonceSize()], body[aead.NonceSize():]

	plain, err := aead.Open(nil, nonce, ct, ad)
	if err != nil {
		return nil, ErrAuth
	}
	return plain, nil
}

// Preferred reports the algorithm with hardware support on this platform.
// Go uses AES instructions on amd64 and arm64.
func Preferred() Algorithm {
	switch runtime.GOARCH {
	case "amd64", "arm64", "s390x":
		return AESGCM
	default:
		return ChaCha20
	}
}

// KDFParams are the Argon2id cost parameters.
type KDFParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKDFParams follows the RFC 9106 second recommended option.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 3, Memory: 64 * 1024, Threads: 4}
}

// DeriveKey stretches passphrase into a KeySize key with Argon2id.
func DeriveKey(passphrase, salt []byte, p KDFParams) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("adaptive: empty passphrase")
	}
	if len(salt) < 8 {
		return nil, errors.New("adaptive: salt must be at least 8 bytes")
	}
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		p = DefaultKDFParams()
	}
	return argon2.IDKey(passphrase, salt, p.Time, p.Memory, p.Threads, KeySize), nil
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("adaptive: read salt: %w", err)
	}
	return salt, nil
}
