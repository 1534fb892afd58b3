package pipeline

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"seedkey/go-keygen/internal/keys"
	"seedkey/go-keygen/internal/metrics"
	"seedkey/go-keygen/internal/mnemonic"
	"seedkey/go-keygen/internal/sshkey"

	"github.com/google/uuid"
)

type Stage string

const (
	StageObtainMnemonic Stage = "obtain_mnemonic"
	StageDeriveSeed     Stage = "derive_seed"
	StageDeriveKey      Stage = "derive_key"
	StageEncode         Stage = "encode"
)

// StageError reports the stage a run aborted in. It unwraps to the cause.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Request is the input of one run. An empty Mnemonic means a fresh phrase
// of WordCount words is generated.
type Request struct {
	Mnemonic        string
	WordCount       int
	BIP39Passphrase string
	Algorithm       keys.Algorithm
	Comment         string
	// Passphrase encrypts the private key file. It is unrelated to
	// BIP39Passphrase.
	Passphrase []byte
	Cipher     string
	Rounds     int
}

type Result struct {
	Mnemonic  string
	Generated bool
	KeyID     string
	Key       *sshkey.EncodedKey
}

type Pipeline struct {
	rand    io.Reader
	logger  *slog.Logger
	metrics *metrics.State
}

type Option func(*Pipeline)

// WithRand sets the entropy source for mnemonics, check integers and KDF
// salts. It must be safe for concurrent use when RunBatch is used.
func WithRand(r io.Reader) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.rand = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithMetrics(m *metrics.State) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		rand:   rand.Reader,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes obtain_mnemonic, derive_seed, derive_key and encode in order.
// On failure it returns a *StageError and no partial result.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	log := p.logger.With(
		"component", "pipeline",
		"operation", "run",
		"correlation_id", uuid.NewString(),
	)
	log.Debug("pipeline started", "algorithm", req.Algorithm.String(), "encrypted", len(req.Passphrase) > 0)

	var (
		m         *mnemonic.Mnemonic
		generated bool
		seed      mnemonic.Seed
		kp        *keys.KeyPair
		encoded   *sshkey.EncodedKey
	)
	defer func() {
		if m != nil {
			m.Wipe()
		}
		seed.Wipe()
		if kp != nil {
			kp.Wipe()
		}
	}()

	err := p.stage(ctx, log, StageObtainMnemonic, func() error {
		var err error
		m, generated, err = p.obtainMnemonic(req)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := p.stage(ctx, log, StageDeriveSeed, func() error {
		seed = m.Seed(req.BIP39Passphrase)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := p.stage(ctx, log, StageDeriveKey, func() error {
		var err error
		kp, err = keys.Derive(seed, req.Algorithm)
		return err
	}); err != nil {
		return nil, err
	}

	var keyID string
	if err := p.stage(ctx, log, StageEncode, func() error {
		var err error
		encoded, err = sshkey.Encode(kp, req.Comment, req.Passphrase,
			sshkey.WithRand(p.rand),
			sshkey.WithCipher(req.Cipher),
			sshkey.WithRounds(req.Rounds),
		)
		if err != nil {
			return err
		}
		keyID, err = keys.KeyID(kp.PublicKey)
		return err
	}); err != nil {
		return nil, err
	}

	p.metrics.RecordKeyDerived(kp.Algorithm.String())
	log.Info("key derived",
		"algorithm", kp.Algorithm.String(),
		"key_id", keyID,
		"fingerprint", encoded.Fingerprint,
		"cipher", encoded.Cipher,
		"generated", generated,
	)

	res := &Result{Generated: generated, KeyID: keyID, Key: encoded}
	if generated {
		res.Mnemonic = m.String()
	}
	return res, nil
}

func (p *Pipeline) obtainMnemonic(req Request) (*mnemonic.Mnemonic, bool, error) {
	if req.Mnemonic != "" {
		m, err := mnemonic.Parse(req.Mnemonic)
		return m, false, err
	}
	wordCount := req.WordCount
	if wordCount == 0 {
		wordCount = mnemonic.DefaultWordCount
	}
	m, err := mnemonic.Generate(p.rand, wordCount)
	return m, true, err
}

func (p *Pipeline) stage(ctx context.Context, log *slog.Logger, stage Stage, fn func() error) error {
	if err := ctx.Err(); err != nil {
		p.metrics.RecordStageError(string(stage))
		log.Warn("pipeline canceled", "stage", string(stage), "error_kind", string(Classify(err)))
		return &StageError{Stage: stage, Err: err}
	}
	started := time.Now()
	err := fn()
	p.metrics.RecordStage(string(stage), started)
	if err != nil {
		p.metrics.RecordStageError(string(stage))
		// only the category is logged; messages can quote user input
		log.Warn("pipeline stage failed", "stage", string(stage), "error_kind", string(Classify(err)))
		return &StageError{Stage: stage, Err: err}
	}
	log.Debug("pipeline stage completed", "stage", string(stage), "duration", time.Since(started))
	return nil
}

// Category groups failures by how a caller should react to them.
type Category string

const (
	CategoryNone         Category = ""
	CategoryInvalidInput Category = "invalid_input"
	CategoryEntropy      Category = "entropy"
	CategoryCanceled     Category = "canceled"
	CategoryInternal     Category = "internal"
)

func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CategoryCanceled
	case errors.Is(err, mnemonic.ErrInsufficientEntropy), errors.Is(err, sshkey.ErrRandomSource):
		return CategoryEntropy
	case errors.Is(err, mnemonic.ErrInvalidWordCount),
		errors.Is(err, mnemonic.ErrUnknownWord),
		errors.Is(err, mnemonic.ErrChecksumMismatch),
		errors.Is(err, mnemonic.ErrMnemonicRequired),
		errors.Is(err, keys.ErrUnsupportedAlgorithm),
		errors.Is(err, sshkey.ErrInvalidComment),
		errors.Is(err, sshkey.ErrUnsupportedCipher):
		return CategoryInvalidInput
	default:
		return CategoryInternal
	}
}
