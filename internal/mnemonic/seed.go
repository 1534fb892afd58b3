package mnemonic

import (
	"crypto/sha512"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

const (
	SeedSize       = 64
	seedIterations = 2048
	seedSaltPrefix = "mnemonic"
)

// Seed is the stretched BIP39 secret.
type Seed [SeedSize]byte

// Seed derives the BIP39 seed for this phrase and passphrase.
func (m *Mnemonic) Seed(passphrase string) Seed {
	return ToSeed(m.String(), passphrase)
}

// ToSeed applies PBKDF2-HMAC-SHA512 with 2048 iterations to the NFKD form of
// sentence, salted with "mnemonic" + NFKD(passphrase). It does not validate
// sentence; callers go through Parse first.
func ToSeed(sentence, passphrase string) Seed {
	password := []byte(norm.NFKD.String(sentence))
	salt := []byte(seedSaltPrefix + norm.NFKD.String(passphrase))
	key := pbkdf2.Key(password, salt, seedIterations, SeedSize, sha512.New)
	defer zeroBytes(key)
	defer zeroBytes(password)

	var seed Seed
	copy(seed[:], key)
	return seed
}

// Wipe overwrites the seed in place.
func (s *Seed) Wipe() {
	zeroBytes(s[:])
}
