package config

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// Validate checks the resolved configuration.
//
// The relay URL and API key are checked first so their absence produces a
// ConfigurationError naming the field; the remaining constraints live in
// schema.cue.
func (c Config) Validate() error {
	if c.Relay.URL == "" {
		return &ConfigurationError{Field: "relay.url", Message: "missing relay URL (set " + EnvRelayURL + ")"}
	}
	if c.Relay.APIKey == "" {
		return &ConfigurationError{Field: "relay.api_key", Message: "missing relay API key (set " + EnvRelayKey + ")"}
	}
	if _, err := url.ParseRequestURI(c.Relay.URL); err != nil {
		return &ConfigurationError{Field: "relay.url", Message: "invalid relay URL", Err: err}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(c.schemaView()))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		errs := cueerrors.Errors(err)
		if len(errs) == 0 {
			return &ConfigurationError{Field: "schema", Message: "invalid configuration", Err: err}
		}
		first := errs[0]
		return &ConfigurationError{
			Field:   joinPath(first.Path()),
			Message: "violates schema",
			Err:     err,
		}
	}
	return c.checkPollBudget()
}

// checkPollBudget rejects a max_wait that would end polling before
// max_attempts. No sleep follows the last attempt.
func (c Config) checkPollBudget() error {
	if c.Poll.MaxWait <= 0 {
		return nil
	}
	need := time.Duration(c.Poll.MaxAttempts-1) * c.PollInterval()
	if c.Poll.MaxWait < need {
		return &ConfigurationError{
			Field: "poll.max_wait",
			Message: fmt.Sprintf("%s is shorter than %d attempts at %s (%s); raise it or set 0 to disable",
				c.Poll.MaxWait, c.Poll.MaxAttempts, c.PollInterval(), need),
		}
	}
	return nil
}

// schemaView flattens the config into plain values CUE can encode.
// Durations are expressed in milliseconds.
func (c Config) schemaView() map[string]any {
	return map[string]any{
		"relay": map[string]any{
			"url":        c.Relay.URL,
			"api_key":    c.Relay.APIKey,
			"timeout_ms": c.Relay.Timeout.Milliseconds(),
			"chain_id":   c.Relay.ChainID,
		},
		"poll": map[string]any{
			"max_attempts":            c.Poll.MaxAttempts,
			"interval_direct_ms":      c.Poll.IntervalDirect.Milliseconds(),
			"interval_aggregating_ms": c.Poll.IntervalAggregating.Milliseconds(),
			"transient_backoff_ms":    c.Poll.TransientBackoff.Milliseconds(),
			"max_wait_ms":             c.Poll.MaxWait.Milliseconds(),
		},
		"proof": map[string]any{
			"library": c.Proof.Library,
			"curve":   c.Proof.Curve,
		},
		"claim": map[string]any{
			"link_field":       c.Claim.LinkField,
			"aggregation_role": c.Claim.AggregationRole,
		},
		"artifacts": map[string]any{
			"build_dir":  c.Artifacts.BuildDir,
			"proofs_dir": c.Artifacts.ProofsDir,
			"snarkjs":    c.Artifacts.SnarkJS,
		},
		"store": map[string]any{
			"path": c.Store.Path,
		},
		"server": map[string]any{
			"addr": c.Server.Addr,
		},
		"log_level": c.LogLevel,
	}
}

func joinPath(parts []string) string {
	if len(parts) == 0 {
		return "schema"
	}
	return strings.Join(parts, ".")
}
