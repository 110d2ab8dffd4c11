// Package config resolves the orchestrator configuration.
//
// A Config is built once at process start and handed to every component
// constructor. Nothing in this module reads the environment after Load
// returns.
//
// # Sources
//
// Values are layered, lowest precedence first:
//
//  1. Defaults (see Default)
//  2. YAML file (optional, --config)
//  3. .env file (optional, read with godotenv without touching os.Environ)
//  4. Process environment
//
// CLI flags are applied by the caller after Load.
//
// The resolved Config is checked by Validate: missing relay URL or API key
// is a ConfigurationError, everything else is checked against an embedded
// CUE schema.
package config

import (
	"time"
)

// Environment variable names understood by Load.
const (
	EnvRelayURL  = "RELAYER_API"
	EnvRelayKey  = "RELAYER_KEY"
	EnvChainID   = "CHAIN_ID"
	EnvDatabase  = "ZKCLAIM_DB"
	EnvBuildDir  = "ZKCLAIM_BUILD_DIR"
	EnvProofsDir = "ZKCLAIM_PROOFS_DIR"
	EnvLogLevel  = "ZKCLAIM_LOG_LEVEL"
	EnvPort      = "PORT"
)

// Config is the complete orchestrator configuration.
type Config struct {
	Relay     Relay     `yaml:"relay"`
	Poll      Poll      `yaml:"poll"`
	Proof     Proof     `yaml:"proof"`
	Claim     Claim     `yaml:"claim"`
	Artifacts Artifacts `yaml:"artifacts"`
	Store     Store     `yaml:"store"`
	Server    Server    `yaml:"server"`
	LogLevel  string    `yaml:"log_level"`
	LogPath   string    `yaml:"log_path"`
}

// Relay describes how to reach the proof-verification relay.
type Relay struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`

	// ChainID enables aggregation mode when non-zero.
	ChainID uint64 `yaml:"chain_id"`
}

// Poll holds the job poller budget.
type Poll struct {
	MaxAttempts         int           `yaml:"max_attempts"`
	IntervalDirect      time.Duration `yaml:"interval_direct"`
	IntervalAggregating time.Duration `yaml:"interval_aggregating"`
	TransientBackoff    time.Duration `yaml:"transient_backoff"`

	// MaxWait bounds a single poll run in wall-clock time, 503 retries
	// included. Zero disables the bound.
	MaxWait time.Duration `yaml:"max_wait"`
}

// Proof holds the proof system options sent to the relay.
type Proof struct {
	Library string `yaml:"library"`
	Curve   string `yaml:"curve"`
}

// Claim holds the two-phase claim wiring.
type Claim struct {
	// LinkField is the patient circuit input that receives the doctor
	// proof hash.
	LinkField string `yaml:"link_field"`

	// AggregationRole is the only role whose aggregation receipt is
	// persisted.
	AggregationRole string `yaml:"aggregation_role"`
}

// Artifacts locates compiled circuits and saved proofs on disk.
type Artifacts struct {
	BuildDir  string `yaml:"build_dir"`
	ProofsDir string `yaml:"proofs_dir"`
	SnarkJS   string `yaml:"snarkjs"`
}

// Store locates the SQLite database.
type Store struct {
	Path string `yaml:"path"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when nothing overrides it.
// Relay URL and API key have no default.
func Default() Config {
	return Config{
		Relay: Relay{
			Timeout: 30 * time.Second,
		},
		Poll: Poll{
			MaxAttempts:         30,
			IntervalDirect:      5 * time.Second,
			IntervalAggregating: 20 * time.Second,
			TransientBackoff:    5 * time.Second,
			MaxWait:             15 * time.Minute,
		},
		Proof: Proof{
			Library: "snarkjs",
			Curve:   "bn128",
		},
		Claim: Claim{
			LinkField:       "doctor_proof_hash",
			AggregationRole: "patient",
		},
		Artifacts: Artifacts{
			BuildDir:  "build",
			ProofsDir: "proofs",
			SnarkJS:   "snarkjs",
		},
		Store: Store{
			Path: "zkclaim.db",
		},
		Server: Server{
			Addr: ":3001",
		},
		LogLevel: "info",
	}
}

// AggregationEnabled reports whether proofs are submitted for cross-chain
// aggregation.
func (c Config) AggregationEnabled() bool {
	return c.Relay.ChainID != 0
}

// PollInterval returns the sleep between counted poll attempts for the
// current mode.
func (c Config) PollInterval() time.Duration {
	if c.AggregationEnabled() {
		return c.Poll.IntervalAggregating
	}
	return c.Poll.IntervalDirect
}
