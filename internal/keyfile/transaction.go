package keyfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type opKind int

const (
	opCreateDir opKind = iota
	opWriteFile
	opReplaceFile
)

type operation struct {
	kind   opKind
	path   string
	backup string
}

// transaction records filesystem changes so they can be undone in reverse
// order. Replaced files are moved aside into a backup directory next to
// them until commit.
type transaction struct {
	ops       []operation
	backupDir string
	committed bool
}

func (tx *transaction) mkdirAll(dir string, perm os.FileMode) error {
	var missing []string
	for p := filepath.Clean(dir); ; p = filepath.Dir(p) {
		info, err := os.Stat(p)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", p)
			}
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		missing = append(missing, p)
		if parent := filepath.Dir(p); parent == p {
			break
		}
	}
	for i := len(missing) - 1; i >= 0; i-- {
		if err := os.Mkdir(missing[i], perm); err != nil {
			return err
		}
		tx.ops = append(tx.ops, operation{kind: opCreateDir, path: missing[i]})
	}
	return nil
}

func (tx *transaction) writeFile(path string, data []byte, perm os.FileMode) error {
	kind := opWriteFile
	var backup string
	if _, err := os.Lstat(path); err == nil {
		b, err := tx.moveAside(path)
		if err != nil {
			return err
		}
		kind, backup = opReplaceFile, b
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := writeAtomic(path, data, perm); err != nil {
		if backup != "" {
			return errors.Join(err, os.Rename(backup, path))
		}
		return err
	}
	tx.ops = append(tx.ops, operation{kind: kind, path: path, backup: backup})
	return nil
}

func (tx *transaction) moveAside(path string) (string, error) {
	if tx.backupDir == "" {
		dir, err := os.MkdirTemp(filepath.Dir(path), ".seedkey-backup-")
		if err != nil {
			return "", err
		}
		tx.backupDir = dir
	}
	backup := filepath.Join(tx.backupDir, fmt.Sprintf("%s.%d", filepath.Base(path), len(tx.ops)))
	if err := os.Rename(path, backup); err != nil {
		return "", err
	}
	return backup, nil
}

func (tx *transaction) commit() error {
	tx.committed = true
	return tx.cleanup()
}

// rollback is a no-op after commit.
func (tx *transaction) rollback() error {
	if tx.committed {
		return nil
	}
	var errs []error
	for i := len(tx.ops) - 1; i >= 0; i-- {
		op := tx.ops[i]
		switch op.kind {
		case opCreateDir:
			errs = append(errs, os.Remove(op.path))
		case opWriteFile:
			errs = append(errs, os.Remove(op.path))
		case opReplaceFile:
			errs = append(errs, os.Rename(op.backup, op.path))
		}
	}
	tx.ops = nil
	errs = append(errs, tx.cleanup())
	return errors.Join(errs...)
}

func (tx *transaction) cleanup() error {
	if tx.backupDir == "" {
		return nil
	}
	err := os.RemoveAll(tx.backupDir)
	tx.backupDir = ""
	return err
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	ok = true
	return nil
}
