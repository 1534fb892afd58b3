package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"seedkey/go-keygen/internal/keys"

	"golang.org/x/crypto/ssh"
)

// EncodedKey is the external form of one key pair.
type EncodedKey struct {
	Algorithm   keys.Algorithm
	PublicKey   []byte // authorized_keys line, newline terminated
	PrivateKey  []byte // armored openssh-key-v1 block
	Fingerprint string
	Cipher      string
	KDF         string
}

type encodeOptions struct {
	rand   io.Reader
	cipher string
	rounds int
}

type Option func(*encodeOptions)

// WithRand sets the source for the check integer and KDF salt.
func WithRand(r io.Reader) Option {
	return func(o *encodeOptions) {
		if r != nil {
			o.rand = r
		}
	}
}

// WithCipher selects the cipher used when a passphrase is given.
func WithCipher(name string) Option {
	return func(o *encodeOptions) {
		if name = strings.TrimSpace(name); name != "" {
			o.cipher = name
		}
	}
}

// WithRounds sets the bcrypt_pbkdf round count.
func WithRounds(rounds int) Option {
	return func(o *encodeOptions) {
		if rounds > 0 {
			o.rounds = rounds
		}
	}
}

// Encode serializes kp into the public key line and the OpenSSH private key
// block. A non-empty passphrase encrypts the private block.
func Encode(kp *keys.KeyPair, comment string, passphrase []byte, opts ...Option) (*EncodedKey, error) {
	o := encodeOptions{rand: rand.Reader, cipher: DefaultCipher, rounds: DefaultKDFRounds}
	for _, opt := range opts {
		opt(&o)
	}
	if strings.ContainsAny(comment, "\r\n") {
		return nil, ErrInvalidComment
	}
	if err := kp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	pub, err := sshPublicKey(kp)
	if err != nil {
		return nil, err
	}
	body, err := marshalPrivateBody(kp, comment)
	if err != nil {
		return nil, err
	}
	pubBlob := pub.Marshal()

	var check [4]byte
	if _, err := io.ReadFull(o.rand, check[:]); err != nil {
		return nil, fmt.Errorf("%w: check integer: %v", ErrRandomSource, err)
	}
	checkInt := binary.BigEndian.Uint32(check[:])
	block := ssh.Marshal(privateKeyBlock{
		Check1:  checkInt,
		Check2:  checkInt,
		Keytype: pub.Type(),
		Rest:    body,
	})
	zeroBytes(body)

	container := privateKeyContainer{
		CipherName: CipherNone,
		KdfName:    kdfNone,
		NumKeys:    1,
		PubKey:     pubBlob,
	}
	if len(passphrase) == 0 {
		container.PrivKeyBlock = padBlock(block, plainBlockSize)
	} else {
		spec, err := lookupCipher(o.cipher)
		if err != nil {
			return nil, err
		}
		salt := make([]byte, kdfSaltSize)
		if _, err := io.ReadFull(o.rand, salt); err != nil {
			return nil, fmt.Errorf("%w: kdf salt: %v", ErrRandomSource, err)
		}
		key, iv, err := spec.deriveKeyIV(passphrase, salt, o.rounds)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
		}
		block = padBlock(block, spec.blockSize())
		err = spec.crypt(key, iv, block, true)
		zeroBytes(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
		}
		container.CipherName = spec.name
		container.KdfName = kdfBcrypt
		container.KdfOpts = string(ssh.Marshal(bcryptOptions{Salt: salt, Rounds: uint32(o.rounds)}))
		container.PrivKeyBlock = block
	}

	raw := append([]byte(privateKeyMagic), ssh.Marshal(container)...)
	return &EncodedKey{
		Algorithm:   kp.Algorithm,
		PublicKey:   authorizedKeyLine(pub.Type(), pubBlob, comment),
		PrivateKey:  armor(raw),
		Fingerprint: ssh.FingerprintSHA256(pub),
		Cipher:      container.CipherName,
		KDF:         container.KdfName,
	}, nil
}

func sshPublicKey(kp *keys.KeyPair) (ssh.PublicKey, error) {
	switch kp.Algorithm {
	case keys.AlgorithmEd25519:
		pub, err := ssh.NewPublicKey(ed25519.PublicKey(kp.PublicKey))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
		}
		return pub, nil
	default:
		return nil, &keys.UnsupportedAlgorithmError{Name: kp.Algorithm.String()}
	}
}

// marshalPrivateBody returns the algorithm specific tail of the private
// block, everything after the key type.
func marshalPrivateBody(kp *keys.KeyPair, comment string) ([]byte, error) {
	switch kp.Algorithm {
	case keys.AlgorithmEd25519:
		return ssh.Marshal(ed25519PrivateBody{
			Pub:     kp.PublicKey,
			Priv:    kp.PrivateKey,
			Comment: comment,
		}), nil
	default:
		return nil, &keys.UnsupportedAlgorithmError{Name: kp.Algorithm.String()}
	}
}

func authorizedKeyLine(keyType string, blob []byte, comment string) []byte {
	line := keyType + " " + base64.StdEncoding.EncodeToString(blob)
	if comment != "" {
		line += " " + comment
	}
	return []byte(line + "\n")
}

// PublicKeyLine renders kp as an authorized_keys line.
func PublicKeyLine(kp *keys.KeyPair, comment string) ([]byte, error) {
	if strings.ContainsAny(comment, "\r\n") {
		return nil, ErrInvalidComment
	}
	pub, err := sshPublicKey(kp)
	if err != nil {
		return nil, err
	}
	return authorizedKeyLine(pub.Type(), pub.Marshal(), comment), nil
}

// Fingerprint returns the OpenSSH SHA256 fingerprint of kp's public key.
func Fingerprint(kp *keys.KeyPair) (string, error) {
	pub, err := sshPublicKey(kp)
	if err != nil {
		return "", err
	}
	return ssh.FingerprintSHA256(pub), nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
