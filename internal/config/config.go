package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"seedkey/go-keygen/internal/keys"
	"seedkey/go-keygen/internal/mnemonic"
	"seedkey/go-keygen/internal/sshkey"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	SSH      SSHConfig
	Mnemonic MnemonicConfig
	Log      LogConfig
	Batch    BatchConfig
	Metrics  MetricsConfig
}

type SSHConfig struct {
	KeyType    string
	OutputDir  string
	OutputName string
	// Comment empty means the caller picks user@hostname.
	Comment   string
	Cipher    string
	KDFRounds int
}

type MnemonicConfig struct {
	WordCount int
}

type LogConfig struct {
	Level string
}

type BatchConfig struct {
	Workers       int
	RatePerSecond float64
}

type MetricsConfig struct {
	Textfile string
}

// FileConfig is the on-disk YAML layout. Zero values leave defaults alone.
type FileConfig struct {
	SSH struct {
		KeyType    string `yaml:"keyType"`
		OutputDir  string `yaml:"outputDir"`
		OutputName string `yaml:"outputName"`
		Comment    string `yaml:"comment"`
		Cipher     string `yaml:"cipher"`
		KDFRounds  int    `yaml:"kdfRounds"`
	} `yaml:"ssh"`
	Mnemonic struct {
		WordCount int `yaml:"wordCount"`
	} `yaml:"mnemonic"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Batch struct {
		Workers       int     `yaml:"workers"`
		RatePerSecond float64 `yaml:"ratePerSecond"`
	} `yaml:"batch"`
	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`
}

func Default() Config {
	return Config{
		SSH: SSHConfig{
			KeyType:   keys.AlgorithmEd25519.String(),
			OutputDir: defaultOutputDir(),
			Cipher:    sshkey.DefaultCipher,
			KDFRounds: sshkey.DefaultKDFRounds,
		},
		Mnemonic: MnemonicConfig{WordCount: mnemonic.DefaultWordCount},
		Log:      LogConfig{Level: "warn"},
	}
}

// LoadFromPath applies, in order, defaults, the YAML file and SEEDKEY_*
// environment overrides. An explicit configPath must exist; the default
// location is optional.
func LoadFromPath(configPath string) (Config, error) {
	cfg := Default()

	path := strings.TrimSpace(configPath)
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var parsed FileConfig
			if err := yaml.Unmarshal(data, &parsed); err != nil {
				return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
			}
			Merge(&cfg, parsed)
		case explicit || !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Merge(dst *Config, src FileConfig) {
	if src.SSH.KeyType != "" {
		dst.SSH.KeyType = src.SSH.KeyType
	}
	if src.SSH.OutputDir != "" {
		dst.SSH.OutputDir = expandHome(src.SSH.OutputDir)
	}
	if src.SSH.OutputName != "" {
		dst.SSH.OutputName = src.SSH.OutputName
	}
	if src.SSH.Comment != "" {
		dst.SSH.Comment = src.SSH.Comment
	}
	if src.SSH.Cipher != "" {
		dst.SSH.Cipher = src.SSH.Cipher
	}
	if src.SSH.KDFRounds != 0 {
		dst.SSH.KDFRounds = src.SSH.KDFRounds
	}
	if src.Mnemonic.WordCount != 0 {
		dst.Mnemonic.WordCount = src.Mnemonic.WordCount
	}
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
	if src.Batch.Workers != 0 {
		dst.Batch.Workers = src.Batch.Workers
	}
	if src.Batch.RatePerSecond != 0 {
		dst.Batch.RatePerSecond = src.Batch.RatePerSecond
	}
	if src.Metrics.Textfile != "" {
		dst.Metrics.Textfile = expandHome(src.Metrics.Textfile)
	}
}

// ApplyEnvOverrides reads SEEDKEY_* variables. Malformed numbers are
// reported rather than ignored.
func ApplyEnvOverrides(cfg *Config) error {
	setString := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) error {
		raw := strings.TrimSpace(os.Getenv(name))
		if raw == "" {
			return nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, name, raw)
		}
		*dst = v
		return nil
	}

	setString("SEEDKEY_KEY_TYPE", &cfg.SSH.KeyType)
	setString("SEEDKEY_OUTPUT_DIR", &cfg.SSH.OutputDir)
	setString("SEEDKEY_OUTPUT_NAME", &cfg.SSH.OutputName)
	setString("SEEDKEY_COMMENT", &cfg.SSH.Comment)
	setString("SEEDKEY_CIPHER", &cfg.SSH.Cipher)
	setString("SEEDKEY_LOG_LEVEL", &cfg.Log.Level)
	setString("SEEDKEY_METRICS_TEXTFILE", &cfg.Metrics.Textfile)
	cfg.SSH.OutputDir = expandHome(cfg.SSH.OutputDir)

	if err := setInt("SEEDKEY_KDF_ROUNDS", &cfg.SSH.KDFRounds); err != nil {
		return err
	}
	if err := setInt("SEEDKEY_WORDS", &cfg.Mnemonic.WordCount); err != nil {
		return err
	}
	if err := setInt("SEEDKEY_BATCH_WORKERS", &cfg.Batch.Workers); err != nil {
		return err
	}
	if raw := strings.TrimSpace(os.Getenv("SEEDKEY_BATCH_RATE")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: SEEDKEY_BATCH_RATE=%q", ErrInvalidConfig, raw)
		}
		cfg.Batch.RatePerSecond = v
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := keys.ParseAlgorithm(c.SSH.KeyType); err != nil {
		return fmt.Errorf("%w: ssh.keyType: %w", ErrInvalidConfig, err)
	}
	if mnemonic.EntropyBits(c.Mnemonic.WordCount) == 0 {
		return fmt.Errorf("%w: mnemonic.wordCount %d not in %v", ErrInvalidConfig, c.Mnemonic.WordCount, mnemonic.ValidWordCounts)
	}
	if !supportedCipher(c.SSH.Cipher) {
		return fmt.Errorf("%w: ssh.cipher %q not in %v", ErrInvalidConfig, c.SSH.Cipher, sshkey.SupportedCiphers())
	}
	if c.SSH.KDFRounds <= 0 {
		return fmt.Errorf("%w: ssh.kdfRounds must be positive", ErrInvalidConfig)
	}
	if c.Batch.Workers < 0 || c.Batch.RatePerSecond < 0 {
		return fmt.Errorf("%w: batch limits must not be negative", ErrInvalidConfig)
	}
	return nil
}

func supportedCipher(name string) bool {
	for _, c := range sshkey.SupportedCiphers() {
		if c == name {
			return true
		}
	}
	return false
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, "seedkey", "config.yaml")
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".ssh")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
