package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"

	dErrors "medisync/pkg/domain-errors"
)

// KDF parameters. The salt is a fixed, versioned domain constant: derivation
// must be deterministic so that existing ciphertext stays decryptable across
// restarts, and the version suffix lets a future parameter change coexist
// with old envelopes.
const (
	kdfIterations = 200_000
	keyLength     = 32
)

var kdfSalt = []byte("medisync:fields:v1")

// KeyMaterial is the derived symmetric key together with the parameters that
// produced it. It is never persisted; it lives only in process memory and is
// owned by the Cipher constructed from it.
type KeyMaterial struct {
	key        []byte
	Algorithm  string
	Iterations int
	Salt       []byte
}

// DeriveKey stretches the operator-supplied secret into fixed-length key
// material using PBKDF2-HMAC-SHA256. The secret itself must never appear in
// logs or error messages; errors here carry no payload beyond the code.
func DeriveKey(secret []byte) (KeyMaterial, error) {
	if len(secret) == 0 {
		return KeyMaterial{}, dErrors.New(dErrors.CodeConfiguration, "encryption secret is empty")
	}
	key := pbkdf2.Key(secret, kdfSalt, kdfIterations, keyLength, sha256.New)
	return KeyMaterial{
		key:        key,
		Algorithm:  "pbkdf2-hmac-sha256",
		Iterations: kdfIterations,
		Salt:       kdfSalt,
	}, nil
}
