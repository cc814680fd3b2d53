// Package codec translates plaintext scalars to opaque envelope strings at
// the persistence boundary. Every sensitive column (names, identifiers,
// contact data, clinical text) passes through here on read and write; the
// store only ever sees ciphertext.
package codec

import (
	"time"

	"medisync/internal/crypto"
	dErrors "medisync/pkg/domain-errors"
)

// dateLayout is the canonical serialization for date-valued fields. RFC 3339
// is unambiguous and lossless, so encode/decode round-trips exactly.
const dateLayout = time.RFC3339

// Observer receives a callback per codec operation. Used to feed metrics
// without coupling the codec to a metrics implementation.
type Observer interface {
	FieldEncrypted()
	FieldDecrypted()
	DecryptionFailed()
}

// Codec encrypts and decrypts individual attribute values. It holds no
// plaintext state between calls; each operation goes straight through the
// injected cipher.
type Codec struct {
	cipher   *crypto.Cipher
	observer Observer
}

// Option configures the Codec.
type Option func(*Codec)

// WithObserver registers a per-operation callback.
func WithObserver(o Observer) Option {
	return func(c *Codec) {
		c.observer = o
	}
}

func New(cipher *crypto.Cipher, opts ...Option) *Codec {
	c := &Codec{cipher: cipher}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EncodeString encrypts a nullable string value. Absence is not encrypted:
// nil maps to nil so the store can keep NULL semantics.
func (c *Codec) EncodeString(value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	envelope, err := c.cipher.Encrypt([]byte(*value))
	if err != nil {
		return nil, err
	}
	if c.observer != nil {
		c.observer.FieldEncrypted()
	}
	return &envelope, nil
}

// DecodeString reverses EncodeString.
func (c *Codec) DecodeString(stored *string) (*string, error) {
	if stored == nil {
		return nil, nil
	}
	plaintext, err := c.cipher.Decrypt(*stored)
	if err != nil {
		if c.observer != nil {
			c.observer.DecryptionFailed()
		}
		return nil, err
	}
	if c.observer != nil {
		c.observer.FieldDecrypted()
	}
	value := string(plaintext)
	return &value, nil
}

// EncodeTime canonicalizes a nullable time value to RFC 3339 before
// encryption so the representation is unambiguous regardless of the zone or
// precision the caller held it in.
func (c *Codec) EncodeTime(value *time.Time) (*string, error) {
	if value == nil {
		return nil, nil
	}
	canonical := value.UTC().Format(dateLayout)
	return c.EncodeString(&canonical)
}

// DecodeTime reverses EncodeTime.
func (c *Codec) DecodeTime(stored *string) (*time.Time, error) {
	if stored == nil {
		return nil, nil
	}
	canonical, err := c.DecodeString(stored)
	if err != nil {
		return nil, err
	}
	parsed, err := time.Parse(dateLayout, *canonical)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDecryption, "decrypted value is not a canonical date")
	}
	return &parsed, nil
}
