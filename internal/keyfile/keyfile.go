package keyfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"seedkey/go-keygen/internal/keys"
	"seedkey/go-keygen/internal/sshkey"
)

const (
	dirPerm        os.FileMode = 0o700
	privateKeyPerm os.FileMode = 0o600
	publicKeyPerm  os.FileMode = 0o644
	publicSuffix               = ".pub"
)

var (
	ErrOverwriteRefused = errors.New("existing key file not overwritten")
	ErrInvalidName      = errors.New("invalid key file name")
)

// ConfirmFunc is asked once per existing file before it is replaced.
type ConfirmFunc func(path string) bool

type Paths struct {
	Private string
	Public  string
}

// Writer stores key pairs as <name> and <name>.pub. Either both files are
// written or the directory is left as it was.
type Writer struct {
	// Confirm decides whether existing files may be replaced. Nil refuses.
	Confirm ConfirmFunc
}

// DefaultName is the OpenSSH style file name for alg, e.g. id_ed25519.
func DefaultName(alg keys.Algorithm) string {
	return "id_" + alg.String()
}

// PathsFor returns where Write would store a key named name in dir.
func PathsFor(dir, name string) (Paths, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return Paths{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	private := filepath.Join(dir, name)
	return Paths{Private: private, Public: private + publicSuffix}, nil
}

func (w *Writer) Write(dir, name string, key *sshkey.EncodedKey) (paths Paths, err error) {
	if key == nil {
		return Paths{}, errors.New("nil encoded key")
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultName(key.Algorithm)
	}
	paths, err = PathsFor(dir, name)
	if err != nil {
		return Paths{}, err
	}
	for _, p := range []string{paths.Public, paths.Private} {
		if err := w.confirmOverwrite(p); err != nil {
			return Paths{}, err
		}
	}

	tx := &transaction{}
	defer func() {
		if err != nil {
			if rbErr := tx.rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()
	if err = tx.mkdirAll(dir, dirPerm); err != nil {
		return Paths{}, err
	}
	if err = tx.writeFile(paths.Public, key.PublicKey, publicKeyPerm); err != nil {
		return Paths{}, err
	}
	if err = tx.writeFile(paths.Private, key.PrivateKey, privateKeyPerm); err != nil {
		return Paths{}, err
	}
	if err = tx.commit(); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

func (w *Writer) confirmOverwrite(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrOverwriteRefused, path)
	}
	if w.Confirm == nil || !w.Confirm(path) {
		return fmt.Errorf("%w: %s", ErrOverwriteRefused, path)
	}
	return nil
}
