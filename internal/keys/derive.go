// Package keys derives algorithm specific key pairs from a BIP39 seed.
package keys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha512"
	"errors"
	"fmt"

	"seedkey/go-keygen/internal/mnemonic"

	"filippo.io/edwards25519"
)

var (
	ErrKeyMaterialInvariant = errors.New("derived key material violates invariant")
	ErrInvalidKeyPair       = errors.New("invalid key pair")
)

// KeyPair holds derived key material. For Ed25519, PrivateKey is the 64-byte
// seed||public form shared by crypto/ed25519 and OpenSSH.
type KeyPair struct {
	Algorithm  Algorithm
	PrivateKey []byte
	PublicKey  []byte
}

// Derive maps seed to a key pair for alg. The same seed and algorithm always
// give the same key pair.
func Derive(seed mnemonic.Seed, alg Algorithm) (*KeyPair, error) {
	switch alg {
	case AlgorithmEd25519:
		return deriveEd25519(seed[:ed25519.SeedSize])
	default:
		return nil, &UnsupportedAlgorithmError{Name: alg.String()}
	}
}

func deriveEd25519(seed32 []byte) (*KeyPair, error) {
	h := sha512.Sum512(seed32)
	defer zeroBytes(h[:])

	scalar, err := new(edwards25519.Scalar).SetBytesWithClamping(h[:32])
	if err != nil {
		return nil, fmt.Errorf("%w: clamp scalar: %v", ErrKeyMaterialInvariant, err)
	}
	pub := new(edwards25519.Point).ScalarBaseMult(scalar).Bytes()

	priv := ed25519.NewKeyFromSeed(seed32)
	if !bytes.Equal(priv.Public().(ed25519.PublicKey), pub) {
		zeroBytes(priv)
		return nil, fmt.Errorf("%w: ed25519 public key mismatch", ErrKeyMaterialInvariant)
	}

	return &KeyPair{
		Algorithm:  AlgorithmEd25519,
		PrivateKey: priv,
		PublicKey:  pub,
	}, nil
}

// Validate checks algorithm fixed lengths and that the private key embeds
// the public key.
func (kp *KeyPair) Validate() error {
	if kp == nil {
		return ErrInvalidKeyPair
	}
	switch kp.Algorithm {
	case AlgorithmEd25519:
		if len(kp.PublicKey) != ed25519.PublicKeySize {
			return fmt.Errorf("%w: ed25519 public key is %d bytes", ErrInvalidKeyPair, len(kp.PublicKey))
		}
		if len(kp.PrivateKey) != ed25519.PrivateKeySize {
			return fmt.Errorf("%w: ed25519 private key is %d bytes", ErrInvalidKeyPair, len(kp.PrivateKey))
		}
		if !bytes.Equal(kp.PrivateKey[ed25519.SeedSize:], kp.PublicKey) {
			return fmt.Errorf("%w: public key does not match private key", ErrInvalidKeyPair)
		}
		return nil
	default:
		return &UnsupportedAlgorithmError{Name: kp.Algorithm.String()}
	}
}

// Wipe zeroes the private half.
func (kp *KeyPair) Wipe() {
	if kp != nil {
		zeroBytes(kp.PrivateKey)
	}
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
