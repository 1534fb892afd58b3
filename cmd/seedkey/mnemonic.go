package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"seedkey/go-keygen/internal/mnemonic"
	"seedkey/go-keygen/pkg/models"

	"github.com/spf13/cobra"
)

func (a *app) newMnemonicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mnemonic",
		Short: "Generate or check BIP39 mnemonics",
	}
	cmd.AddCommand(a.newMnemonicGenerateCmd(), a.newMnemonicValidateCmd())
	return cmd
}

func (a *app) newMnemonicGenerateCmd() *cobra.Command {
	var (
		words  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a fresh mnemonic",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("words") {
				words = a.cfg.Mnemonic.WordCount
			}
			m, err := mnemonic.Generate(a.entropy(), words)
			if err != nil {
				return err
			}
			defer m.Wipe()
			if asJSON {
				return printJSON(a.stdout, models.MnemonicResult{Mnemonic: m.String(), WordCount: m.WordCount(), Valid: true})
			}
			_, err = fmt.Fprintln(a.stdout, m.String())
			return err
		},
	}
	cmd.Flags().IntVarP(&words, "words", "w", mnemonic.DefaultWordCount, "word count (12|15|18|21|24)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit json")
	return cmd
}

func (a *app) newMnemonicValidateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate [words...]",
		Short: "Check word count, wordlist membership and checksum",
		Long:  "Validates the phrase given as arguments, or read from SEEDKEY_MNEMONIC or stdin when no arguments are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			phrase := strings.Join(args, " ")
			if phrase == "" {
				phrase = os.Getenv("SEEDKEY_MNEMONIC")
			}
			if phrase == "" {
				line, err := bufio.NewReader(a.stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("%w: %v", mnemonic.ErrMnemonicRequired, err)
				}
				phrase = line
			}

			m, parseErr := mnemonic.Parse(phrase)
			result := models.MnemonicResult{WordCount: len(strings.Fields(phrase)), Valid: parseErr == nil}
			if parseErr != nil {
				result.Error = parseErr.Error()
			} else {
				m.Wipe()
			}
			if asJSON {
				if err := printJSON(a.stdout, result); err != nil {
					return err
				}
				return parseErr
			}
			if parseErr != nil {
				return parseErr
			}
			_, err := fmt.Fprintf(a.stdout, "valid %d word mnemonic\n", result.WordCount)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit json")
	return cmd
}
