package mnemonic

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/tyler-smith/go-bip39"
)

const zeroEntropyPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("source unavailable") }

func TestGenerateRoundTripAllWordCounts(t *testing.T) {
	for _, n := range ValidWordCounts {
		src := bytes.NewReader(bytes.Repeat([]byte{0xA5, 0x3C, 0x7E}, 16))
		m, err := Generate(src, n)
		if err != nil {
			t.Fatalf("generate %d words failed: %v", n, err)
		}
		if m.WordCount() != n {
			t.Fatalf("expected %d words, got %d", n, m.WordCount())
		}
		if got := len(m.Entropy()) * 8; got != EntropyBits(n) {
			t.Fatalf("expected %d entropy bits, got %d", EntropyBits(n), got)
		}

		parsed, err := Parse(m.String())
		if err != nil {
			t.Fatalf("parse generated %d-word mnemonic failed: %v", n, err)
		}
		if !bytes.Equal(parsed.Entropy(), m.Entropy()) {
			t.Fatalf("entropy mismatch after round trip for %d words", n)
		}
	}
}

func TestGenerateUsesInjectedSource(t *testing.T) {
	m, err := Generate(bytes.NewReader(make([]byte, 16)), 12)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if m.String() != zeroEntropyPhrase {
		t.Fatalf("unexpected phrase for zero entropy: %q", m.String())
	}
}

func TestGenerateFailsOnShortOrBrokenSource(t *testing.T) {
	if _, err := Generate(bytes.NewReader(make([]byte, 10)), 12); !errors.Is(err, ErrInsufficientEntropy) {
		t.Fatalf("expected ErrInsufficientEntropy for short read, got %v", err)
	}
	if _, err := Generate(failingReader{}, 24); !errors.Is(err, ErrInsufficientEntropy) {
		t.Fatalf("expected ErrInsufficientEntropy for broken reader, got %v", err)
	}
	if _, err := Generate(nil, 12); !errors.Is(err, ErrInsufficientEntropy) {
		t.Fatalf("expected ErrInsufficientEntropy for nil reader, got %v", err)
	}
}

func TestGenerateRejectsWordCount(t *testing.T) {
	for _, n := range []int{0, 3, 11, 13, 25} {
		if _, err := Generate(bytes.NewReader(make([]byte, 64)), n); !errors.Is(err, ErrInvalidWordCount) {
			t.Fatalf("expected ErrInvalidWordCount for %d, got %v", n, err)
		}
	}
}

func TestParseRejectsWordCount(t *testing.T) {
	words := strings.Fields(zeroEntropyPhrase)
	if _, err := ParseWords(words[:11]); !errors.Is(err, ErrInvalidWordCount) {
		t.Fatalf("expected ErrInvalidWordCount, got %v", err)
	}
	if _, err := Parse("   "); !errors.Is(err, ErrMnemonicRequired) {
		t.Fatalf("expected ErrMnemonicRequired, got %v", err)
	}
}

func TestParseRejectsUnknownWord(t *testing.T) {
	words := strings.Fields(zeroEntropyPhrase)
	for pos := range words {
		mutated := append([]string(nil), words...)
		mutated[pos] = "notaword"
		_, err := ParseWords(mutated)
		if !errors.Is(err, ErrUnknownWord) {
			t.Fatalf("expected ErrUnknownWord at %d, got %v", pos+1, err)
		}
		var unknown *UnknownWordError
		if !errors.As(err, &unknown) {
			t.Fatalf("expected *UnknownWordError, got %T", err)
		}
		if unknown.Position != pos+1 || unknown.Word != "notaword" {
			t.Fatalf("unexpected unknown word detail: %+v", unknown)
		}
	}
}

func TestParseRejectsEveryChecksumBitFlip(t *testing.T) {
	for _, n := range ValidWordCounts {
		m, err := Generate(bytes.NewReader(bytes.Repeat([]byte{0x5A}, 32)), n)
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		checksumBits := n / 3
		words := m.Words()
		last, ok := bip39.GetWordIndex(words[n-1])
		if !ok {
			t.Fatalf("last word %q missing from wordlist", words[n-1])
		}
		for bit := 0; bit < checksumBits; bit++ {
			mutated := append([]string(nil), words...)
			mutated[n-1] = bip39.GetWordList()[last^(1<<bit)]
			if _, err := ParseWords(mutated); !errors.Is(err, ErrChecksumMismatch) {
				t.Fatalf("%d words, bit %d: expected ErrChecksumMismatch, got %v", n, bit, err)
			}
		}
	}
}

func TestParseNormalizesWhitespaceAndCase(t *testing.T) {
	m, err := Parse("  ABANDON abandon\tabandon abandon abandon abandon\nabandon abandon abandon abandon abandon About ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if m.String() != zeroEntropyPhrase {
		t.Fatalf("unexpected normalized phrase: %q", m.String())
	}
	if !IsValid(zeroEntropyPhrase) {
		t.Fatal("zero entropy phrase must be valid")
	}
}

func TestWipeClearsEntropy(t *testing.T) {
	m, err := Generate(bytes.NewReader(bytes.Repeat([]byte{0xFF}, 16)), 12)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	m.Wipe()
	if !bytes.Equal(m.entropy, make([]byte, 16)) {
		t.Fatal("entropy should be zeroed after wipe")
	}
}
