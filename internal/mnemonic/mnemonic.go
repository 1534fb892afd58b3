// Package mnemonic generates and validates English BIP39 phrases and stretches
// them into 64-byte seeds.
package mnemonic

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrInsufficientEntropy = errors.New("entropy source could not be read")
	ErrInvalidWordCount    = errors.New("invalid mnemonic word count")
	ErrUnknownWord         = errors.New("unknown mnemonic word")
	ErrChecksumMismatch    = errors.New("mnemonic checksum mismatch")
	ErrMnemonicRequired    = errors.New("mnemonic is required")
)

// ValidWordCounts lists the phrase lengths defined by BIP39.
var ValidWordCounts = []int{12, 15, 18, 21, 24}

const DefaultWordCount = 12

// UnknownWordError reports the first word that is not in the wordlist.
// Position is 1-based.
type UnknownWordError struct {
	Word     string
	Position int
}

func (e *UnknownWordError) Error() string {
	return fmt.Sprintf("%s: %q at position %d", ErrUnknownWord, e.Word, e.Position)
}

func (e *UnknownWordError) Is(target error) bool {
	return target == ErrUnknownWord
}

// Mnemonic is a validated phrase together with the entropy it encodes. The
// zero value is not usable; obtain one from Generate or Parse.
type Mnemonic struct {
	words   []string
	entropy []byte
}

// EntropyBits returns the entropy size for a phrase of wordCount words, or 0
// when the count is not a BIP39 length.
func EntropyBits(wordCount int) int {
	for _, n := range ValidWordCounts {
		if n == wordCount {
			// every 3 words carry 32 bits of entropy and 1 checksum bit
			return wordCount / 3 * 32
		}
	}
	return 0
}

// Generate reads fresh entropy from rand and encodes it as a phrase of
// wordCount words.
func Generate(rand io.Reader, wordCount int) (*Mnemonic, error) {
	bits := EntropyBits(wordCount)
	if bits == 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWordCount, wordCount)
	}
	if rand == nil {
		return nil, fmt.Errorf("%w: no source configured", ErrInsufficientEntropy)
	}
	entropy := make([]byte, bits/8)
	if _, err := io.ReadFull(rand, entropy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientEntropy, err)
	}
	return FromEntropy(entropy)
}

// FromEntropy encodes raw entropy of 16, 20, 24, 28 or 32 bytes.
func FromEntropy(entropy []byte) (*Mnemonic, error) {
	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes of entropy", ErrInvalidWordCount, len(entropy))
	}
	return &Mnemonic{
		words:   strings.Fields(phrase),
		entropy: append([]byte(nil), entropy...),
	}, nil
}

// Parse validates a space separated phrase.
func Parse(phrase string) (*Mnemonic, error) {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return nil, ErrMnemonicRequired
	}
	return ParseWords(words)
}

// ParseWords validates word count, wordlist membership and checksum, in that
// order. Words are NFKD-normalized and lower-cased before lookup; no other
// correction is attempted.
func ParseWords(words []string) (*Mnemonic, error) {
	if EntropyBits(len(words)) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWordCount, len(words))
	}

	normalized := make([]string, len(words))
	for i, w := range words {
		w = strings.ToLower(norm.NFKD.String(strings.TrimSpace(w)))
		if _, ok := bip39.GetWordIndex(w); !ok {
			return nil, &UnknownWordError{Word: words[i], Position: i + 1}
		}
		normalized[i] = w
	}

	entropy, err := bip39.EntropyFromMnemonic(strings.Join(normalized, " "))
	switch {
	case errors.Is(err, bip39.ErrChecksumIncorrect):
		return nil, ErrChecksumMismatch
	case err != nil:
		return nil, fmt.Errorf("decode mnemonic: %w", err)
	}
	return &Mnemonic{words: normalized, entropy: entropy}, nil
}

// IsValid reports whether phrase parses without error.
func IsValid(phrase string) bool {
	_, err := Parse(phrase)
	return err == nil
}

func (m *Mnemonic) Words() []string {
	return append([]string(nil), m.words...)
}

func (m *Mnemonic) WordCount() int {
	return len(m.words)
}

func (m *Mnemonic) Entropy() []byte {
	return append([]byte(nil), m.entropy...)
}

// String returns the normalized sentence: words joined by single spaces.
func (m *Mnemonic) String() string {
	return strings.Join(m.words, " ")
}

// Wipe overwrites the held entropy. The Mnemonic must not be used afterwards.
func (m *Mnemonic) Wipe() {
	zeroBytes(m.entropy)
	for i := range m.words {
		m.words[i] = ""
	}
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
