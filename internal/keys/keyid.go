package keys

import (
	"fmt"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
)

const keyIDPrefix = "sk1"

// KeyID returns a short, copy-paste friendly identifier for a public key.
func KeyID(publicKey []byte) (string, error) {
	if len(publicKey) == 0 {
		return "", fmt.Errorf("%w: empty public key", ErrInvalidKeyPair)
	}
	h := blake2b.Sum256(publicKey)
	return keyIDPrefix + base58.Encode(h[:]), nil
}

func VerifyKeyID(keyID string, publicKey []byte) (bool, error) {
	expected, err := KeyID(publicKey)
	if err != nil {
		return false, err
	}
	return keyID == expected, nil
}
