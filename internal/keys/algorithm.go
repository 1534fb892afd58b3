package keys

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedAlgorithm = errors.New("unsupported key algorithm")

// Algorithm is the closed set of key types the tool knows about. Only
// Ed25519 derivation is implemented; the others are recognized so callers get
// an explicit error instead of a silent fallback.
type Algorithm int

const (
	AlgorithmUnknown Algorithm = iota
	AlgorithmEd25519
	AlgorithmRSA
	AlgorithmECDSA
	AlgorithmDSA
	AlgorithmEd25519SK
	AlgorithmECDSASK
)

var algorithmNames = map[Algorithm]string{
	AlgorithmEd25519:   "ed25519",
	AlgorithmRSA:       "rsa",
	AlgorithmECDSA:     "ecdsa",
	AlgorithmDSA:       "dsa",
	AlgorithmEd25519SK: "ed25519-sk",
	AlgorithmECDSASK:   "ecdsa-sk",
}

func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return fmt.Sprintf("algorithm(%d)", int(a))
}

// SSHName returns the OpenSSH key type identifier, e.g. "ssh-ed25519".
func (a Algorithm) SSHName() string {
	switch a {
	case AlgorithmEd25519:
		return "ssh-ed25519"
	case AlgorithmRSA:
		return "ssh-rsa"
	case AlgorithmECDSA:
		return "ecdsa-sha2-nistp256"
	case AlgorithmDSA:
		return "ssh-dss"
	case AlgorithmEd25519SK:
		return "sk-ssh-ed25519@openssh.com"
	case AlgorithmECDSASK:
		return "sk-ecdsa-sha2-nistp256@openssh.com"
	default:
		return ""
	}
}

// UnsupportedAlgorithmError names an algorithm that cannot be derived.
type UnsupportedAlgorithmError struct {
	Name string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnsupportedAlgorithm, e.Name)
}

func (e *UnsupportedAlgorithmError) Is(target error) bool {
	return target == ErrUnsupportedAlgorithm
}

// ParseAlgorithm maps a ssh-keygen style type name to an Algorithm. Names
// are matched case-insensitively.
func ParseAlgorithm(name string) (Algorithm, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for alg, n := range algorithmNames {
		if n == normalized {
			return alg, nil
		}
	}
	return AlgorithmUnknown, &UnsupportedAlgorithmError{Name: name}
}

// Implemented reports whether Derive supports a.
func (a Algorithm) Implemented() bool {
	return a == AlgorithmEd25519
}
