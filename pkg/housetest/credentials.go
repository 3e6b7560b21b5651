package housetest

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters, small enough for tests.
const (
	argonTime    = 1
	argonMemory  = 8 * 1024
	argonThreads = 1
	argonKeyLen  = 32
	saltLength   = 16
)

// credential is a salted Argon2id hash of a password or client secret.
type credential struct {
	salt []byte
	hash []byte
}

func hashSecret(secret string) credential {
	salt := make([]byte, saltLength)
	_, _ = rand.Read(salt)
	return credential{
		salt: salt,
		hash: argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen),
	}
}

func (c credential) matches(secret string) bool {
	if c.hash == nil {
		return false
	}
	computed := argon2.IDKey([]byte(secret), c.salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(computed, c.hash) == 1
}
