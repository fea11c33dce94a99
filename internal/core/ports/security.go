package ports

// SecurityPort defines the interface for encrypting and decrypting sensitive data.
// This allows us to swap the implementation (e.g., from AES to something else)
// without changing any business logic that uses it.
type SecurityPort interface {
	// Encrypt takes a plaintext and returns a secure, encrypted ciphertext.
	Encrypt(plaintext []byte) (ciphertext []byte, err error)

	// Decrypt takes a ciphertext and returns the original plaintext.
	Decrypt(ciphertext []byte) (plaintext []byte, err error)
}

// SecretHasher hashes short secrets (OTP codes) for storage.
type SecretHasher interface {
	Hash(secret string) (string, error)
	Compare(hash, secret string) bool
}

// TokenIssuer mints opaque single-use tokens and numeric codes.
type TokenIssuer interface {
	// NewToken returns a raw token and the digest to store.
	NewToken() (raw string, digest string, err error)

	// Digest hashes a presented raw token for lookup.
	Digest(raw string) string

	// NewNumericCode returns a random code of the given number of digits.
	NewNumericCode(digits int) (string, error)
}
