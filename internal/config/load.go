package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadOptions selects the sources consulted by Load.
type LoadOptions struct {
	// File is an optional YAML config file.
	File string

	// EnvFile is an optional dotenv file.
	EnvFile string

	// EnvFileOptional suppresses the error when EnvFile does not exist.
	// The CLI sets it for its default ".env".
	EnvFileOptional bool

	// LookupEnv reads the process environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load resolves a Config from defaults, File, EnvFile and the environment.
// The result is not validated; call Validate once flags are applied.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := loadYAML(&cfg, opts.File); err != nil {
			return Config{}, err
		}
	}

	dotenv := map[string]string{}
	if opts.EnvFile != "" {
		m, err := godotenv.Read(opts.EnvFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, fs.ErrNotExist) && opts.EnvFileOptional:
		default:
			return Config{}, &ConfigurationError{Field: "env_file", Message: "read " + opts.EnvFile, Err: err}
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := applyEnv(&cfg, get); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ConfigurationError{Field: "file", Message: "read " + path, Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return &ConfigurationError{Field: "file", Message: "parse " + path, Err: err}
	}
	return nil
}

func applyEnv(cfg *Config, get func(string) (string, bool)) error {
	if v, ok := get(EnvRelayURL); ok {
		cfg.Relay.URL = strings.TrimRight(strings.TrimSpace(v), "/")
	}
	if v, ok := get(EnvRelayKey); ok {
		cfg.Relay.APIKey = strings.TrimSpace(v)
	}
	if v, ok := get(EnvChainID); ok {
		chainID, err := ParseChainID(v)
		if err != nil {
			return err
		}
		cfg.Relay.ChainID = chainID
	}
	if v, ok := get(EnvDatabase); ok && v != "" {
		cfg.Store.Path = v
	}
	if v, ok := get(EnvBuildDir); ok && v != "" {
		cfg.Artifacts.BuildDir = v
	}
	if v, ok := get(EnvProofsDir); ok && v != "" {
		cfg.Artifacts.ProofsDir = v
	}
	if v, ok := get(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := get(EnvPort); ok && v != "" {
		if _, err := strconv.ParseUint(v, 10, 16); err != nil {
			return &ConfigurationError{Field: "server.addr", Message: fmt.Sprintf("invalid %s %q", EnvPort, v), Err: err}
		}
		cfg.Server.Addr = ":" + v
	}
	return nil
}

// ParseChainID parses a chain identifier. An empty string means
// aggregation is off.
func ParseChainID(v string) (uint64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, &ConfigurationError{Field: "relay.chain_id", Message: fmt.Sprintf("invalid chain id %q", v), Err: err}
	}
	return id, nil
}
