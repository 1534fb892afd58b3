package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"seedkey/go-keygen/internal/keyfile"
	"seedkey/go-keygen/internal/pipeline"
	"seedkey/go-keygen/pkg/models"

	"github.com/spf13/cobra"
)

func (a *app) newBatchCmd() *cobra.Command {
	var (
		flags   keyFlags
		workers int
		rate    float64
	)
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Derive one key pair per mnemonic listed in a file",
		Long: `Reads one mnemonic per line ("-" for stdin; blank lines and lines starting with # are skipped)
and writes <name>_<n> / <name>_<n>.pub for the n-th phrase.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.flushMetrics()
			opts := pipeline.BatchOptions{Workers: a.cfg.Batch.Workers, RatePerSecond: a.cfg.Batch.RatePerSecond}
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}
			if cmd.Flags().Changed("rate") {
				opts.RatePerSecond = rate
			}
			return a.runBatch(cmd, &flags, args[0], opts)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent derivations (default GOMAXPROCS)")
	cmd.Flags().Float64Var(&rate, "rate", 0, "maximum derivations started per second (0 = unlimited)")
	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, flags *keyFlags, source string, opts pipeline.BatchOptions) error {
	phrases, err := a.readPhrases(source)
	if err != nil {
		return err
	}
	if len(phrases) == 0 {
		return fmt.Errorf("%w: %s contains no mnemonics", errUsage, source)
	}
	if opts.Workers < 0 || opts.RatePerSecond < 0 {
		return fmt.Errorf("%w: --workers and --rate must not be negative", errUsage)
	}

	resolved, err := a.resolveKeyFlags(cmd, flags)
	if err != nil {
		return err
	}
	baseName := resolved.outputName
	if baseName == "" {
		baseName = keyfile.DefaultName(resolved.algorithm)
	}

	reqs := make([]pipeline.Request, len(phrases))
	for i, phrase := range phrases {
		reqs[i] = pipeline.Request{
			Mnemonic:        phrase,
			BIP39Passphrase: flags.bip39Passphrase,
			Algorithm:       resolved.algorithm,
			Comment:         resolved.comment,
			Passphrase:      resolved.passphrase,
			Cipher:          resolved.cipher,
			Rounds:          resolved.rounds,
		}
	}
	a.logger.Info("batch started", "count", len(reqs), "workers", opts.Workers)
	results, err := a.newPipeline().RunBatch(cmd.Context(), reqs, opts)
	if err != nil {
		return err
	}

	writer := a.keyWriter(flags.yes)
	out := models.BatchResult{Keys: make([]models.KeyResult, 0, len(results))}
	for i, res := range results {
		paths, err := writer.Write(resolved.outputDir, fmt.Sprintf("%s_%d", baseName, i+1), res.Key)
		if err != nil {
			return fmt.Errorf("key %d: %w", i+1, err)
		}
		out.Keys = append(out.Keys, models.KeyResult{
			Algorithm:      res.Key.Algorithm.String(),
			KeyID:          res.KeyID,
			Fingerprint:    res.Key.Fingerprint,
			PublicKey:      strings.TrimSpace(string(res.Key.PublicKey)),
			PublicKeyPath:  paths.Public,
			PrivateKeyPath: paths.Private,
			Cipher:         res.Key.Cipher,
			KDF:            res.Key.KDF,
		})
	}
	out.Metrics = a.metrics.Snapshot()

	if flags.asJSON {
		return printJSON(a.stdout, out)
	}
	for _, k := range out.Keys {
		if _, err := fmt.Fprintf(a.stdout, "%s %s %s\n", k.PrivateKeyPath, k.Fingerprint, k.KeyID); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) readPhrases(source string) ([]string, error) {
	var r io.Reader = a.stdin
	if source != "-" {
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var phrases []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		phrases = append(phrases, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return phrases, nil
}
