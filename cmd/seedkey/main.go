package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"seedkey/go-keygen/internal/config"
	"seedkey/go-keygen/internal/keyfile"
	"seedkey/go-keygen/internal/metrics"
	"seedkey/go-keygen/internal/pipeline"
	"seedkey/go-keygen/internal/platform/privacylog"
	"seedkey/go-keygen/internal/sshkey"

	"github.com/spf13/cobra"
)

const (
	exitOK           = 0
	exitInvalidInput = 10
	exitEntropy      = 20
	exitIO           = 30
	exitInternal     = 40
)

var errUsage = errors.New("usage error")

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	prompt prompter
	// rand overrides the entropy source; nil means crypto/rand.
	rand io.Reader

	configPath string
	logLevel   string

	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.State
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		prompt: newTerminalPrompter(os.Stdin, os.Stderr),
	}
	code := a.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func (a *app) run(ctx context.Context, args []string) int {
	root := a.newRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	_, _ = fmt.Fprintf(a.stderr, "seedkey: %v\n", err)
	return exitCode(err)
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "seedkey",
		Short:         "Derive reproducible SSH keys from BIP39 mnemonics",
		Long:          "seedkey turns a BIP39 mnemonic into an OpenSSH key pair. The same words always yield the same key.",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetVersionTemplate("seedkey {{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("SEEDKEY_CONFIG"), "config file path")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level debug|info|warn|error (logs go to stderr)")

	root.AddCommand(
		a.newSSHCmd(),
		a.newBatchCmd(),
		a.newMnemonicCmd(),
		a.newInspectCmd(),
		a.newVersionCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.LoadFromPath(a.configPath)
	if err != nil {
		return err
	}
	if lvl := strings.TrimSpace(a.logLevel); lvl != "" {
		cfg.Log.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = privacylog.NewLogger(a.stderr, privacylog.ParseLevel(cfg.Log.Level))
	a.metrics = metrics.New()
	return nil
}

func (a *app) newPipeline() *pipeline.Pipeline {
	return pipeline.New(
		pipeline.WithRand(a.rand),
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(a.metrics),
	)
}

// flushMetrics writes the textfile export when one is configured. Failures
// are logged, never fatal.
func (a *app) flushMetrics() {
	path := a.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		a.logger.Warn("metrics textfile export failed", "path", path, "error", err.Error())
	}
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}

func exitCode(err error) int {
	switch pipeline.Classify(err) {
	case pipeline.CategoryNone:
		return exitOK
	case pipeline.CategoryInvalidInput:
		return exitInvalidInput
	case pipeline.CategoryEntropy:
		return exitEntropy
	}

	var pathErr *fs.PathError
	switch {
	case errors.Is(err, errUsage),
		errors.Is(err, errPassphraseMismatch),
		errors.Is(err, errPassphraseRequired),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, keyfile.ErrOverwriteRefused),
		errors.Is(err, keyfile.ErrInvalidName),
		errors.Is(err, sshkey.ErrMalformedKey),
		errors.Is(err, sshkey.ErrPassphraseRequired),
		errors.Is(err, sshkey.ErrDecryptionIntegrity),
		errors.Is(err, sshkey.ErrUnsupportedKDF):
		return exitInvalidInput
	case errors.As(err, &pathErr), errors.Is(err, fs.ErrPermission), errors.Is(err, fs.ErrNotExist):
		return exitIO
	case strings.HasPrefix(err.Error(), "unknown command"), strings.HasPrefix(err.Error(), "unknown flag"):
		return exitInvalidInput
	default:
		return exitInternal
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
