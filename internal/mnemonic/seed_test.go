package mnemonic

import (
	"encoding/hex"
	"testing"
)

func TestSeedRegressionVectors(t *testing.T) {
	cases := []struct {
		name       string
		passphrase string
		want       string
	}{
		{
			name: "empty passphrase",
			want: "5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc19a5ac40b389cd370d086206dec8aa6c43daea6690f20ad3d8d48b2d2ce9e38e4",
		},
		{
			name:       "TREZOR passphrase",
			passphrase: "TREZOR",
			want:       "c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04",
		},
	}

	m, err := Parse(zeroEntropyPhrase)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seed := m.Seed(tc.passphrase)
			if got := hex.EncodeToString(seed[:]); got != tc.want {
				t.Fatalf("unexpected seed:\n got  %s\n want %s", got, tc.want)
			}
		})
	}
}

func TestSeedDeterministic(t *testing.T) {
	a := ToSeed(zeroEntropyPhrase, "pass")
	b := ToSeed(zeroEntropyPhrase, "pass")
	if a != b {
		t.Fatal("seed should be deterministic")
	}
	if a == ToSeed(zeroEntropyPhrase, "other") {
		t.Fatal("different passphrases should give different seeds")
	}
}

func TestSeedNormalizesPassphrase(t *testing.T) {
	composed := ToSeed(zeroEntropyPhrase, "caf\u00e9")
	decomposed := ToSeed(zeroEntropyPhrase, "cafe\u0301")
	if composed != decomposed {
		t.Fatal("NFC and NFD passphrases should stretch to the same seed")
	}
}

func TestSeedWipe(t *testing.T) {
	seed := ToSeed(zeroEntropyPhrase, "")
	seed.Wipe()
	if seed != (Seed{}) {
		t.Fatal("seed should be zero after wipe")
	}
}
