package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"seedkey/go-keygen/internal/keys"
	"seedkey/go-keygen/internal/sshkey"
	"seedkey/go-keygen/pkg/models"

	"github.com/spf13/cobra"
)

func (a *app) newInspectCmd() *cobra.Command {
	var (
		passphrase string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <private-key-file>",
		Short: "Decode an OpenSSH private key and show its fingerprint",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInspect(args[0], passphrase, asJSON)
		},
	}
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", os.Getenv("SEEDKEY_PASSPHRASE"), "passphrase of an encrypted key; prompted when needed")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit json")
	return cmd
}

func (a *app) runInspect(path, passphrase string, asJSON bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	decoded, err := sshkey.Decode(data, []byte(passphrase))
	if errors.Is(err, sshkey.ErrPassphraseRequired) && a.prompt.Interactive() {
		var pw []byte
		pw, err = a.prompt.Password(fmt.Sprintf("Enter passphrase for %s: ", path))
		if err != nil {
			return err
		}
		decoded, err = sshkey.Decode(data, pw)
	}
	if err != nil {
		return err
	}
	kp := decoded.KeyPair
	defer kp.Wipe()

	fingerprint, err := sshkey.Fingerprint(kp)
	if err != nil {
		return err
	}
	keyID, err := keys.KeyID(kp.PublicKey)
	if err != nil {
		return err
	}
	line, err := sshkey.PublicKeyLine(kp, decoded.Comment)
	if err != nil {
		return err
	}
	out := models.InspectResult{
		Path:        path,
		Algorithm:   kp.Algorithm.String(),
		KeyID:       keyID,
		Fingerprint: fingerprint,
		Comment:     decoded.Comment,
		Cipher:      decoded.Cipher,
		KDF:         decoded.KDF,
		Rounds:      decoded.Rounds,
		PublicKey:   strings.TrimSpace(string(line)),
	}
	if asJSON {
		return printJSON(a.stdout, out)
	}
	_, err = fmt.Fprintf(a.stdout, "%s %s (%s)\ncipher=%s kdf=%s key_id=%s\n%s\n",
		out.Fingerprint, out.Comment, strings.ToUpper(out.Algorithm), out.Cipher, out.KDF, out.KeyID, out.PublicKey)
	return err
}
