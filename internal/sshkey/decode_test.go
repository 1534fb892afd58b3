package sshkey

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestDecodeRegressionFixture(t *testing.T) {
	got, err := Decode([]byte(fixturePrivateKey), nil)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	kp := fixtureKeyPair(t)
	if !bytes.Equal(got.KeyPair.PublicKey, kp.PublicKey) {
		t.Fatal("decoded public key does not match derived key")
	}
	if got.Comment != fixtureComment || got.Cipher != CipherNone || got.KDF != "none" {
		t.Fatalf("unexpected metadata: %+v", got)
	}
}

func TestDecodeWrongPassphraseFailsIntegrityCheck(t *testing.T) {
	enc, err := Encode(fixtureKeyPair(t), "", []byte("right"), WithRand(fixedRand()), WithRounds(2))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if _, err := Decode(enc.PrivateKey, []byte("wrong")); !errors.Is(err, ErrDecryptionIntegrity) {
		t.Fatalf("expected ErrDecryptionIntegrity, got %v", err)
	}
	if _, err := Decode(enc.PrivateKey, nil); !errors.Is(err, ErrPassphraseRequired) {
		t.Fatalf("expected ErrPassphraseRequired, got %v", err)
	}
	if _, err := Decode(enc.PrivateKey, []byte("right")); err != nil {
		t.Fatalf("decode with right passphrase failed: %v", err)
	}
}

func TestDecodeRejectsMismatchedCheckIntegers(t *testing.T) {
	c := mustContainer(t, []byte(fixturePrivateKey))
	c.PrivKeyBlock = append([]byte(nil), c.PrivKeyBlock...)
	c.PrivKeyBlock[7] ^= 0xFF
	tampered := armor(append([]byte(privateKeyMagic), ssh.Marshal(c)...))
	if _, err := Decode(tampered, nil); !errors.Is(err, ErrDecryptionIntegrity) {
		t.Fatalf("expected ErrDecryptionIntegrity, got %v", err)
	}
}

func TestDecodeRejectsMismatchedPublicSection(t *testing.T) {
	c := mustContainer(t, []byte(fixturePrivateKey))
	c.PubKey = append([]byte(nil), c.PubKey...)
	c.PubKey[len(c.PubKey)-1] ^= 0x01
	tampered := armor(append([]byte(privateKeyMagic), ssh.Marshal(c)...))
	if _, err := Decode(tampered, nil); !errors.Is(err, ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey, got %v", err)
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"no armor":   "b3BlbnNzaC1rZXktdjEA",
		"bad base64": armorBegin + "\n!!!!\n" + armorEnd + "\n",
		"bad magic":  string(armor([]byte("not-openssh-key\x00"))),
		"truncated":  string(armor([]byte(privateKeyMagic + "\x00\x00"))),
	}
	for name, input := range cases {
		if _, err := Decode([]byte(input), nil); !errors.Is(err, ErrMalformedKey) {
			t.Fatalf("%s: expected ErrMalformedKey, got %v", name, err)
		}
	}
}

func TestDecodeRejectsUnknownCipher(t *testing.T) {
	c := mustContainer(t, []byte(fixturePrivateKey))
	c.CipherName = "chacha20-poly1305@openssh.com"
	c.KdfName = "bcrypt"
	tampered := armor(append([]byte(privateKeyMagic), ssh.Marshal(c)...))
	if _, err := Decode(tampered, []byte("pw")); !errors.Is(err, ErrUnsupportedCipher) {
		t.Fatalf("expected ErrUnsupportedCipher, got %v", err)
	}
}

func TestDecodeAcceptsPEMWrappedAt64(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(fixturePrivateKey), "\n")
	body := strings.Join(lines[1:len(lines)-1], "")
	var b strings.Builder
	b.WriteString(armorBegin + "\n")
	for len(body) > 64 {
		b.WriteString(body[:64] + "\n")
		body = body[64:]
	}
	b.WriteString(body + "\n" + armorEnd + "\n")
	if _, err := Decode([]byte(b.String()), nil); err != nil {
		t.Fatalf("decode of 64 column armor failed: %v", err)
	}
}
