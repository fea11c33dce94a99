package security

import (
	"PayoutGuard/internal/core/ports"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// keyVersion prefixes every ciphertext so a rotated key can coexist with old rows.
const keyVersion byte = 1

// aesService implements the SecurityPort interface using AES-GCM.
type aesService struct {
	gcm cipher.AEAD
	log zerolog.Logger
}

// NewAESService creates a new field encryption service.
func NewAESService(encryptionKey []byte, baseLogger *zerolog.Logger) (ports.SecurityPort, error) {
	if len(encryptionKey) != 16 && len(encryptionKey) != 32 {
		return nil, errors.New("encryptionKey must be 16 or 32 bytes")
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("could not create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create GCM: %w", err)
	}

	log := baseLogger.With().Str("component", "security_service").Logger()
	log.Info().Int("key_version", int(keyVersion)).Msg("Security service initialized")

	return &aesService{gcm: gcm, log: log}, nil
}

// Encrypt seals plaintext as version || nonce || ciphertext.
func (s *aesService) Encrypt(plaintext []byte) ([]byte, error) {
	out := make([]byte, 1+s.gcm.NonceSize(), 1+s.gcm.NonceSize()+len(plaintext)+s.gcm.Overhead())
	out[0] = keyVersion
	nonce := out[1:]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		s.log.Error().Err(err).Msg("Failed to generate nonce")
		return nil, fmt.Errorf("could not generate nonce: %w", err)
	}

	return s.gcm.Seal(out, nonce, plaintext, []byte{keyVersion}), nil
}

// Decrypt opens a value produced by Encrypt.
func (s *aesService) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := s.gcm.NonceSize()
	if len(ciphertext) < 1+nonceSize {
		return nil, errors.New("ciphertext is too short")
	}
	if ciphertext[0] != keyVersion {
		return nil, fmt.Errorf("unsupported key version %d", ciphertext[0])
	}

	nonce, sealed := ciphertext[1:1+nonceSize], ciphertext[1+nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, sealed, []byte{keyVersion})
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to decrypt ciphertext (tampered or corrupt?)")
		return nil, fmt.Errorf("could not decrypt: %w", err)
	}

	return plaintext, nil
}

// EncryptField encrypts a string column value and base64-encodes it.
func EncryptField(sec ports.SecurityPort, value string) (string, error) {
	enc, err := sec.Encrypt([]byte(value))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(enc), nil
}

// DecryptField reverses EncryptField.
func DecryptField(sec ports.SecurityPort, value string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("could not base64-decode field: %w", err)
	}
	dec, err := sec.Decrypt(raw)
	if err != nil {
		return "", err
	}
	return string(dec), nil
}
