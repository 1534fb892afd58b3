package models

import "time"

// KeyResult describes one generated key pair on disk.
type KeyResult struct {
	Algorithm         string `json:"algorithm"`
	KeyID             string `json:"key_id"`
	Fingerprint       string `json:"fingerprint"`
	PublicKey         string `json:"public_key"`
	PublicKeyPath     string `json:"public_key_path,omitempty"`
	PrivateKeyPath    string `json:"private_key_path,omitempty"`
	Cipher            string `json:"cipher"`
	KDF               string `json:"kdf"`
	MnemonicGenerated bool   `json:"mnemonic_generated"`
	// Mnemonic is only populated for freshly generated phrases.
	Mnemonic string `json:"mnemonic,omitempty"`
}

type MnemonicResult struct {
	Mnemonic  string `json:"mnemonic,omitempty"`
	WordCount int    `json:"word_count"`
	Valid     bool   `json:"valid"`
	Error     string `json:"error,omitempty"`
}

type InspectResult struct {
	Path        string `json:"path"`
	Algorithm   string `json:"algorithm"`
	KeyID       string `json:"key_id"`
	Fingerprint string `json:"fingerprint"`
	Comment     string `json:"comment"`
	Cipher      string `json:"cipher"`
	KDF         string `json:"kdf"`
	Rounds      uint32 `json:"rounds,omitempty"`
	PublicKey   string `json:"public_key"`
}

type BatchResult struct {
	Keys    []KeyResult     `json:"keys"`
	Metrics MetricsSnapshot `json:"metrics"`
}

type MetricsSnapshot struct {
	Stages        map[string]OperationMetric `json:"stages"`
	LastUpdatedAt time.Time                  `json:"last_updated_at"`
}

type OperationMetric struct {
	Count         int   `json:"count"`
	Errors        int   `json:"errors"`
	AvgLatencyUs  int64 `json:"avg_latency_us"`
	MaxLatencyUs  int64 `json:"max_latency_us"`
	LastLatencyUs int64 `json:"last_latency_us"`
}
