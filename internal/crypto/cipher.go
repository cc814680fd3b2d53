package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"

	dErrors "medisync/pkg/domain-errors"
)

// Envelope format: base64url(version || nonce || ciphertext+tag). The
// version byte is authenticated as additional data, so a tampered version
// fails integrity verification rather than decrypting under wrong
// assumptions. Old envelopes remain decryptable as long as their version
// byte is preserved.
const envelopeVersion byte = 1

// Cipher performs authenticated field-level encryption with a process-wide
// derived key. It is safe for concurrent use: the key is read-only after
// construction.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds the AEAD from derived key material. Constructed once at
// startup and injected into every component that touches sensitive fields.
func NewCipher(km KeyMaterial) (*Cipher, error) {
	block, err := aes.NewCipher(km.key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "invalid key material")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "could not initialize AEAD")
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext into a self-describing envelope string. A fresh
// nonce is drawn per call, so two encryptions of the same plaintext differ.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate nonce")
	}

	buf := make([]byte, 0, 1+len(nonce)+len(plaintext)+c.aead.Overhead())
	buf = append(buf, envelopeVersion)
	buf = append(buf, nonce...)
	buf = c.aead.Seal(buf, nonce, plaintext, []byte{envelopeVersion})

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Decrypt opens an envelope produced by Encrypt. Malformed envelopes fail
// with CodeDecryption; envelopes whose authentication tag does not verify
// fail with CodeIntegrity. Corrupted data is never returned.
func (c *Cipher) Decrypt(envelope string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(envelope)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDecryption, "envelope is not valid base64")
	}
	if len(raw) < 1+c.aead.NonceSize()+c.aead.Overhead() {
		return nil, dErrors.New(dErrors.CodeDecryption, "envelope too short")
	}
	version := raw[0]
	if version != envelopeVersion {
		return nil, dErrors.New(dErrors.CodeDecryption, "unsupported envelope version")
	}

	nonce := raw[1 : 1+c.aead.NonceSize()]
	ciphertext := raw[1+c.aead.NonceSize():]

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, []byte{version})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeIntegrity, "envelope failed integrity verification")
	}
	return plaintext, nil
}
