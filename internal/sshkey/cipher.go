package sshkey

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/dchest/bcrypt_pbkdf"
)

const (
	CipherNone      = "none"
	CipherAES128CTR = "aes128-ctr"
	CipherAES192CTR = "aes192-ctr"
	CipherAES256CTR = "aes256-ctr"
	CipherAES256CBC = "aes256-cbc"

	DefaultCipher    = CipherAES256CTR
	DefaultKDFRounds = 16
	kdfSaltSize      = 16
	plainBlockSize   = 8
)

type cipherSpec struct {
	name   string
	keyLen int
	cbc    bool
}

var cipherSpecs = map[string]cipherSpec{
	CipherAES128CTR: {name: CipherAES128CTR, keyLen: 16},
	CipherAES192CTR: {name: CipherAES192CTR, keyLen: 24},
	CipherAES256CTR: {name: CipherAES256CTR, keyLen: 32},
	CipherAES256CBC: {name: CipherAES256CBC, keyLen: 32, cbc: true},
}

// SupportedCiphers lists cipher names accepted by WithCipher.
func SupportedCiphers() []string {
	return []string{CipherAES256CTR, CipherAES192CTR, CipherAES128CTR, CipherAES256CBC}
}

func lookupCipher(name string) (cipherSpec, error) {
	spec, ok := cipherSpecs[name]
	if !ok {
		return cipherSpec{}, fmt.Errorf("%w: %q", ErrUnsupportedCipher, name)
	}
	return spec, nil
}

func (c cipherSpec) blockSize() int { return aes.BlockSize }

func (c cipherSpec) ivLen() int { return aes.BlockSize }

// deriveKeyIV stretches passphrase with bcrypt_pbkdf into key||iv.
func (c cipherSpec) deriveKeyIV(passphrase, salt []byte, rounds int) (key, iv []byte, err error) {
	material, err := bcrypt_pbkdf.Key(passphrase, salt, rounds, c.keyLen+c.ivLen())
	if err != nil {
		return nil, nil, fmt.Errorf("bcrypt kdf: %w", err)
	}
	return material[:c.keyLen], material[c.keyLen:], nil
}

// crypt encrypts or decrypts block in place. len(block) must be a multiple of
// the cipher block size.
func (c cipherSpec) crypt(key, iv, block []byte, encrypt bool) error {
	b, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	switch {
	case !c.cbc:
		cipher.NewCTR(b, iv).XORKeyStream(block, block)
	case encrypt:
		cipher.NewCBCEncrypter(b, iv).CryptBlocks(block, block)
	default:
		cipher.NewCBCDecrypter(b, iv).CryptBlocks(block, block)
	}
	return nil
}
