package security

import (
	"PayoutGuard/internal/core/ports"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

const tokenBytes = 32

type tokenIssuer struct{}

var _ ports.TokenIssuer = tokenIssuer{}

// NewTokenIssuer returns the crypto/rand backed token issuer.
func NewTokenIssuer() ports.TokenIssuer {
	return tokenIssuer{}
}

// NewToken returns a URL-safe random token and its SHA-256 digest.
func (tokenIssuer) NewToken() (string, string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("could not read random bytes: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	return raw, digest(raw), nil
}

func (tokenIssuer) Digest(raw string) string {
	return digest(raw)
}

// NewNumericCode returns a zero-padded uniform random code.
func (tokenIssuer) NewNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("unsupported code length %d", digits)
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("could not generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}

func digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
