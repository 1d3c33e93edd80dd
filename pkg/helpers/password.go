package helpers

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt reads at most 72 bytes and GenerateFromPassword rejects anything longer.
const bcryptMaxInput = 72

// bcryptInput passes short passwords through unchanged, so existing
// encrypted_password values keep verifying. Longer ones are reduced to their
// base64 SHA-256 digest instead of being truncated or rejected.
func bcryptInput(plain string) []byte {
	if len(plain) <= bcryptMaxInput {
		return []byte(plain)
	}
	sum := sha256.Sum256([]byte(plain))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// EncryptPassword returns the value stored in users.encrypted_password.
func EncryptPassword(plain string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword(bcryptInput(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PasswordMatches reports whether plain is the password behind encrypted.
// An empty encrypted value never matches.
func PasswordMatches(encrypted, plain string) bool {
	if encrypted == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encrypted), bcryptInput(plain)) == nil
}
