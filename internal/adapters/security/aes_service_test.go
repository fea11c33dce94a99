package security

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper function to generate a valid key
func generateKey(length int) []byte {
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return key
}

func TestAESService_EncryptDecrypt_Roundtrip(t *testing.T) {
	nopLogger := zerolog.Nop()

	testCases := []struct {
		name    string
		key     []byte
		payload []byte
	}{
		{name: "AES-128 (16-byte key)", key: generateKey(16), payload: []byte("0123456789")},
		{name: "AES-256 (32-byte key)", key: generateKey(32), payload: []byte("GB29NWBK60161331926819")},
		{name: "Empty Payload", key: generateKey(32), payload: []byte("")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			service, err := NewAESService(tc.key, &nopLogger)
			require.NoError(t, err)

			ciphertext, err := service.Encrypt(tc.payload)
			require.NoError(t, err)
			assert.Equal(t, keyVersion, ciphertext[0])
			if len(tc.payload) > 0 {
				assert.False(t, bytes.Contains(ciphertext, tc.payload), "plaintext leaked into ciphertext")
			}

			plaintext, err := service.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tc.payload, plaintext)
		})
	}
}

func TestAESService_Decrypt_Tampered(t *testing.T) {
	nopLogger := zerolog.Nop()
	service, err := NewAESService(generateKey(32), &nopLogger)
	require.NoError(t, err)

	ciphertext, err := service.Encrypt([]byte("do not tamper with this"))
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] = ^ciphertext[len(ciphertext)-1]

	_, err = service.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestAESService_Decrypt_UnknownVersion(t *testing.T) {
	nopLogger := zerolog.Nop()
	service, err := NewAESService(generateKey(32), &nopLogger)
	require.NoError(t, err)

	ciphertext, err := service.Encrypt([]byte("1234567890"))
	require.NoError(t, err)
	ciphertext[0] = keyVersion + 1

	_, err = service.Decrypt(ciphertext)
	assert.ErrorContains(t, err, "unsupported key version")
}

func TestNewAESService_InvalidKey(t *testing.T) {
	nopLogger := zerolog.Nop()
	_, err := NewAESService([]byte("badkey"), &nopLogger)
	assert.Error(t, err)
}

func TestEncryptField_Roundtrip(t *testing.T) {
	nopLogger := zerolog.Nop()
	service, err := NewAESService(generateKey(32), &nopLogger)
	require.NoError(t, err)

	enc, err := EncryptField(service, "0123456789")
	require.NoError(t, err)
	assert.NotContains(t, enc, "0123456789")

	dec, err := DecryptField(service, enc)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", dec)

	_, err = DecryptField(service, "%%%not-base64")
	assert.Error(t, err)
}
