package main

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strconv"
	"strings"

	"seedkey/go-keygen/internal/keyfile"
	"seedkey/go-keygen/internal/keys"
	"seedkey/go-keygen/internal/mnemonic"
	"seedkey/go-keygen/internal/pipeline"
	"seedkey/go-keygen/pkg/models"

	"github.com/spf13/cobra"
)

var (
	errPassphraseMismatch = errors.New("passphrases do not match")
	errPassphraseRequired = errors.New("no passphrase given; use -N for none or -p to set one")
)

// keyFlags are shared by ssh and batch.
type keyFlags struct {
	keyType         string
	noPassphrase    bool
	passphrase      string
	bip39Passphrase string
	outputDir       string
	outputName      string
	comment         string
	cipher          string
	rounds          int
	asJSON          bool
	yes             bool
}

func (f *keyFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.keyType, "key-type", "t", "", "key type (ed25519)")
	fl.BoolVarP(&f.noPassphrase, "no-passphrase", "N", envBool("SEEDKEY_NO_PASSPHRASE"), "store the private key unencrypted")
	fl.StringVarP(&f.passphrase, "passphrase", "p", os.Getenv("SEEDKEY_PASSPHRASE"), "private key file passphrase; prompted when empty")
	fl.StringVar(&f.bip39Passphrase, "bip39-passphrase", os.Getenv("SEEDKEY_BIP39_PASSPHRASE"), "optional BIP39 passphrase mixed into the seed")
	fl.StringVarP(&f.outputDir, "output-dir", "o", "", "directory for the key files (default ~/.ssh)")
	fl.StringVarP(&f.outputName, "output-name", "f", "", "key file name (default id_<type>)")
	fl.StringVarP(&f.comment, "comment", "C", "", "key comment (default user@hostname)")
	fl.StringVar(&f.cipher, "cipher", "", "cipher for encrypted keys")
	fl.IntVar(&f.rounds, "rounds", 0, "bcrypt KDF rounds for encrypted keys")
	fl.BoolVar(&f.asJSON, "json", false, "emit json")
	fl.BoolVar(&f.yes, "yes", false, "overwrite existing key files without asking")
}

type resolvedKeyFlags struct {
	algorithm  keys.Algorithm
	passphrase []byte
	outputDir  string
	outputName string
	comment    string
	cipher     string
	rounds     int
}

// resolveKeyFlags merges flags over config and asks for the passphrase when the
// user gave neither -N nor -p.
func (a *app) resolveKeyFlags(cmd *cobra.Command, f *keyFlags) (resolvedKeyFlags, error) {
	cfg := a.cfg.SSH
	if cmd.Flags().Changed("key-type") {
		cfg.KeyType = f.keyType
	}
	if f.outputDir != "" {
		cfg.OutputDir = f.outputDir
	}
	if f.outputName != "" {
		cfg.OutputName = f.outputName
	}
	if cmd.Flags().Changed("comment") {
		cfg.Comment = f.comment
	} else if cfg.Comment == "" {
		cfg.Comment = defaultComment()
	}
	if f.cipher != "" {
		cfg.Cipher = f.cipher
	}
	if f.rounds != 0 {
		cfg.KDFRounds = f.rounds
	}
	if cfg.KDFRounds <= 0 {
		return resolvedKeyFlags{}, fmt.Errorf("%w: --rounds must be positive", errUsage)
	}

	alg, err := keys.ParseAlgorithm(cfg.KeyType)
	if err != nil {
		return resolvedKeyFlags{}, err
	}

	var pass []byte
	switch {
	case f.noPassphrase:
	case f.passphrase != "":
		pass = []byte(f.passphrase)
	default:
		pass, err = a.promptNewPassphrase()
		if err != nil {
			return resolvedKeyFlags{}, err
		}
	}

	return resolvedKeyFlags{
		algorithm:  alg,
		passphrase: pass,
		outputDir:  cfg.OutputDir,
		outputName: cfg.OutputName,
		comment:    cfg.Comment,
		cipher:     cfg.Cipher,
		rounds:     cfg.KDFRounds,
	}, nil
}

func (a *app) promptNewPassphrase() ([]byte, error) {
	if !a.prompt.Interactive() {
		return nil, errPassphraseRequired
	}
	first, err := a.prompt.Password("Enter passphrase (empty for no passphrase): ")
	if err != nil {
		return nil, err
	}
	second, err := a.prompt.Password("Enter same passphrase again: ")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(first, second) {
		return nil, errPassphraseMismatch
	}
	if len(first) == 0 {
		return nil, nil
	}
	return first, nil
}

func (a *app) keyWriter(yes bool) *keyfile.Writer {
	return &keyfile.Writer{Confirm: func(path string) bool {
		if yes {
			return true
		}
		if !a.prompt.Interactive() {
			return false
		}
		ok, err := a.prompt.Confirm(fmt.Sprintf("%s already exists, overwrite?", path), false)
		return err == nil && ok
	}}
}

func (a *app) newSSHCmd() *cobra.Command {
	var (
		flags  keyFlags
		phrase string
		words  int
	)
	cmd := &cobra.Command{
		Use:   "ssh",
		Short: "Generate an SSH key pair from a mnemonic",
		Long: `Derives an Ed25519 key pair from a BIP39 mnemonic and writes it in OpenSSH format.
Without --mnemonic a new 12 word phrase is generated and shown once; write it down.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.flushMetrics()
			if !cmd.Flags().Changed("words") {
				words = a.cfg.Mnemonic.WordCount
			}
			return a.runSSH(cmd, &flags, phrase, words)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&phrase, "mnemonic", "m", os.Getenv("SEEDKEY_MNEMONIC"), "mnemonic words separated by spaces; generated when empty")
	cmd.Flags().IntVarP(&words, "words", "w", mnemonic.DefaultWordCount, "word count for a generated mnemonic (12|15|18|21|24)")
	return cmd
}

func (a *app) runSSH(cmd *cobra.Command, flags *keyFlags, phrase string, words int) error {
	generated := false
	if strings.TrimSpace(phrase) == "" && a.prompt.Interactive() && !flags.asJSON {
		var err error
		phrase, err = a.generateInteractively(words)
		if err != nil {
			return err
		}
		generated = true
	}

	resolved, err := a.resolveKeyFlags(cmd, flags)
	if err != nil {
		return err
	}

	res, err := a.newPipeline().Run(cmd.Context(), pipeline.Request{
		Mnemonic:        phrase,
		WordCount:       words,
		BIP39Passphrase: flags.bip39Passphrase,
		Algorithm:       resolved.algorithm,
		Comment:         resolved.comment,
		Passphrase:      resolved.passphrase,
		Cipher:          resolved.cipher,
		Rounds:          resolved.rounds,
	})
	if err != nil {
		return err
	}
	generated = generated || res.Generated

	paths, err := a.keyWriter(flags.yes).Write(resolved.outputDir, resolved.outputName, res.Key)
	if err != nil {
		return err
	}
	a.logger.Info("key pair written", "path", paths.Public, "key_id", res.KeyID)

	out := models.KeyResult{
		Algorithm:         res.Key.Algorithm.String(),
		KeyID:             res.KeyID,
		Fingerprint:       res.Key.Fingerprint,
		PublicKey:         strings.TrimSpace(string(res.Key.PublicKey)),
		PublicKeyPath:     paths.Public,
		PrivateKeyPath:    paths.Private,
		Cipher:            res.Key.Cipher,
		KDF:               res.Key.KDF,
		MnemonicGenerated: generated,
		Mnemonic:          res.Mnemonic,
	}
	if flags.asJSON {
		return printJSON(a.stdout, out)
	}
	if res.Mnemonic != "" {
		if err := printMnemonicNotice(a.stdout, res.Mnemonic); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(a.stdout,
		"Your identification has been saved in %s\nYour public key has been saved in %s\nThe key fingerprint is:\n%s %s\nKey ID: %s\n",
		paths.Private, paths.Public, res.Key.Fingerprint, resolved.comment, res.KeyID)
	return err
}

// generateInteractively shows fresh phrases until the user keeps one.
func (a *app) generateInteractively(words int) (string, error) {
	if _, err := fmt.Fprintln(a.stdout, "No mnemonic provided, generating one for you"); err != nil {
		return "", err
	}
	for {
		m, err := mnemonic.Generate(a.entropy(), words)
		if err != nil {
			return "", err
		}
		phrase := m.String()
		m.Wipe()
		if err := printMnemonicNotice(a.stdout, phrase); err != nil {
			return "", err
		}
		again, err := a.prompt.Confirm("Do you want to regenerate a new mnemonic?", false)
		if err != nil {
			return "", err
		}
		if !again {
			return phrase, nil
		}
	}
}

func printMnemonicNotice(w io.Writer, phrase string) error {
	_, err := fmt.Fprintf(w, "Your %d words mnemonic is:\n  %s\nPlease write it down and store it in a safe place\n",
		len(strings.Fields(phrase)), phrase)
	return err
}

func (a *app) entropy() io.Reader {
	if a.rand != nil {
		return a.rand
	}
	return rand.Reader
}

func defaultComment() string {
	name := "user"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return name + "@" + host
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(name)))
	return err == nil && v
}
