package sshkey

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"seedkey/go-keygen/internal/keys"

	"golang.org/x/crypto/ssh"
)

// DecodedKey is a private key read back from the OpenSSH format.
type DecodedKey struct {
	KeyPair *keys.KeyPair
	Comment string
	Cipher  string
	KDF     string
	Rounds  uint32
}

// Decode parses an armored openssh-key-v1 private key. passphrase is only
// consulted when the key is encrypted.
func Decode(data, passphrase []byte) (*DecodedKey, error) {
	raw, err := dearmor(data)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(raw, []byte(privateKeyMagic)) {
		return nil, fmt.Errorf("%w: bad magic", ErrMalformedKey)
	}

	var container privateKeyContainer
	if err := ssh.Unmarshal(raw[len(privateKeyMagic):], &container); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if container.NumKeys != 1 {
		return nil, fmt.Errorf("%w: %d keys in container", ErrMalformedKey, container.NumKeys)
	}

	out := &DecodedKey{Cipher: container.CipherName, KDF: container.KdfName}
	block := container.PrivKeyBlock
	blockSize := plainBlockSize
	if container.CipherName == CipherNone {
		if container.KdfName != kdfNone {
			return nil, fmt.Errorf("%w: kdf %q without cipher", ErrMalformedKey, container.KdfName)
		}
	} else {
		if len(passphrase) == 0 {
			return nil, ErrPassphraseRequired
		}
		spec, err := lookupCipher(container.CipherName)
		if err != nil {
			return nil, err
		}
		if container.KdfName != kdfBcrypt {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedKDF, container.KdfName)
		}
		var opts bcryptOptions
		if err := ssh.Unmarshal([]byte(container.KdfOpts), &opts); err != nil {
			return nil, fmt.Errorf("%w: kdf options: %v", ErrMalformedKey, err)
		}
		blockSize = spec.blockSize()
		if len(block) == 0 || len(block)%blockSize != 0 {
			return nil, fmt.Errorf("%w: private block is not a multiple of %d", ErrMalformedKey, blockSize)
		}
		key, iv, err := spec.deriveKeyIV(passphrase, opts.Salt, int(opts.Rounds))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		block = append([]byte(nil), block...)
		err = spec.crypt(key, iv, block, false)
		zeroBytes(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		out.Rounds = opts.Rounds
	}
	defer zeroBytes(block)

	if len(block) < 8 {
		return nil, fmt.Errorf("%w: private block too short", ErrMalformedKey)
	}
	if binary.BigEndian.Uint32(block[0:4]) != binary.BigEndian.Uint32(block[4:8]) {
		return nil, ErrDecryptionIntegrity
	}
	var pk privateKeyBlock
	if err := ssh.Unmarshal(block, &pk); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	switch pk.Keytype {
	case ssh.KeyAlgoED25519:
		kp, comment, err := decodeEd25519(pk.Rest, blockSize)
		if err != nil {
			return nil, err
		}
		if err := matchContainerPublicKey(container.PubKey, kp); err != nil {
			kp.Wipe()
			return nil, err
		}
		out.KeyPair = kp
		out.Comment = comment
		return out, nil
	default:
		return nil, &keys.UnsupportedAlgorithmError{Name: pk.Keytype}
	}
}

func decodeEd25519(rest []byte, blockSize int) (*keys.KeyPair, string, error) {
	var body ed25519PrivateBody
	if err := ssh.Unmarshal(rest, &body); err != nil {
		return nil, "", fmt.Errorf("%w: ed25519 body: %v", ErrMalformedKey, err)
	}
	if !checkPadding(body.Pad, blockSize) {
		return nil, "", fmt.Errorf("%w: bad padding", ErrMalformedKey)
	}
	kp := &keys.KeyPair{
		Algorithm:  keys.AlgorithmEd25519,
		PublicKey:  append([]byte(nil), body.Pub...),
		PrivateKey: append([]byte(nil), body.Priv...),
	}
	if err := kp.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}
	// the stored seed must regenerate the stored public key
	regenerated := ed25519.NewKeyFromSeed(kp.PrivateKey[:ed25519.SeedSize])
	defer zeroBytes(regenerated)
	if !bytes.Equal(regenerated[ed25519.SeedSize:], kp.PublicKey) {
		return nil, "", fmt.Errorf("%w: ed25519 seed does not match public key", ErrMalformedKey)
	}
	return kp, body.Comment, nil
}

func matchContainerPublicKey(blob []byte, kp *keys.KeyPair) error {
	pub, err := sshPublicKey(kp)
	if err != nil {
		return err
	}
	if !bytes.Equal(pub.Marshal(), blob) {
		return fmt.Errorf("%w: public key section does not match private section", ErrMalformedKey)
	}
	return nil
}
