package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/zkclaim/internal/claim"
	"github.com/roach88/zkclaim/internal/poller"
)

// Scenario defines one claim run against a scripted relay.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// ChainID enables aggregation mode when non-zero.
	ChainID uint64 `yaml:"chain_id,omitempty"`

	// MaxAttempts overrides the poll budget (default 30).
	MaxAttempts int `yaml:"max_attempts,omitempty"`

	// Claim holds the inputs. Missing roles use the demo inputs.
	Claim ClaimSpec `yaml:"claim,omitempty"`

	// Proofs sets the public signals the fake prover returns per role.
	// Defaults: doctor ["0xdoctor","1"], patient ["0xpatient","1"].
	Proofs map[string][]string `yaml:"proofs,omitempty"`

	Relay      RelayScript `yaml:"relay"`
	Expect     Expect      `yaml:"expect"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ClaimSpec holds the claim inputs.
type ClaimSpec struct {
	Doctor  map[string]string `yaml:"doctor,omitempty"`
	Patient map[string]string `yaml:"patient,omitempty"`
}

// RelayScript lists the scripted replies per relay endpoint.
type RelayScript struct {
	RegisterVK  []ReplyStep `yaml:"register_vk,omitempty"`
	SubmitProof []ReplyStep `yaml:"submit_proof,omitempty"`
	JobStatus   []ReplyStep `yaml:"job_status,omitempty"`
}

// ReplyStep is one scripted relay reply.
type ReplyStep struct {
	Status int            `yaml:"status,omitempty"`
	Body   map[string]any `yaml:"body,omitempty"`
	Repeat int            `yaml:"repeat,omitempty"`
}

// Expect is the expected claim outcome.
type Expect struct {
	// Outcome is one of the Outcome* constants.
	Outcome string `yaml:"outcome"`

	// Role is the role whose phase failed. Ignored on success.
	Role string `yaml:"role,omitempty"`
}

// Claim outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeValidation   = "validation"
	OutcomeLinkage      = "linkage"
	OutcomeRegistration = "registration"
	OutcomeSubmission   = "submission"
	OutcomeFailed       = "failed"
	OutcomeTimeout      = "timeout"
	OutcomeCancelled    = "cancelled"
	OutcomeError        = "error"
)

var knownOutcomes = map[string]bool{
	OutcomeSuccess:      true,
	OutcomeValidation:   true,
	OutcomeLinkage:      true,
	OutcomeRegistration: true,
	OutcomeSubmission:   true,
	OutcomeFailed:       true,
	OutcomeTimeout:      true,
	OutcomeCancelled:    true,
	OutcomeError:        true,
}

// Assertion validates the relay trace or stored state after a run.
type Assertion struct {
	Type string `yaml:"type"`

	// Op is the relay endpoint (call_count).
	Op string `yaml:"op,omitempty"`

	// Count is the expected number of requests (call_count).
	Count int `yaml:"count,omitempty"`

	// Ops is the expected relative order (call_order).
	Ops []string `yaml:"ops,omitempty"`

	// Sleeps are Go durations (sleeps).
	Sleeps []string `yaml:"sleeps,omitempty"`

	// Role selects the receipt or prover call (receipt, prove_input).
	Role string `yaml:"role,omitempty"`

	// Expect is a subset of the receipt's JSON fields (receipt).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Absent asserts that no receipt exists (receipt).
	Absent bool `yaml:"absent,omitempty"`

	// Outcomes are "role:outcome" pairs (runs).
	Outcomes []string `yaml:"outcomes,omitempty"`

	// Field and Value name a prover input (prove_input).
	Field string `yaml:"field,omitempty"`
	Value string `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertCallCount  = "call_count"
	AssertCallOrder  = "call_order"
	AssertSleeps     = "sleeps"
	AssertReceipt    = "receipt"
	AssertRuns       = "runs"
	AssertProveInput = "prove_input"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if !knownOutcomes[s.Expect.Outcome] {
		return fmt.Errorf("expect.outcome: unknown outcome %q", s.Expect.Outcome)
	}
	if s.Expect.Outcome != OutcomeSuccess && s.Expect.Role == "" {
		return fmt.Errorf("expect.role is required for outcome %q", s.Expect.Outcome)
	}
	if s.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be non-negative")
	}
	for role := range s.Proofs {
		if !isRole(role) {
			return fmt.Errorf("proofs: unknown role %q", role)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertCallCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
	case AssertCallOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for call_order", index)
		}
	case AssertSleeps:
		for _, s := range a.Sleeps {
			if _, err := time.ParseDuration(s); err != nil {
				return fmt.Errorf("assertions[%d]: invalid sleep %q: %w", index, s, err)
			}
		}
	case AssertReceipt:
		if !isRole(a.Role) {
			return fmt.Errorf("assertions[%d]: role is required for receipt", index)
		}
		if !a.Absent && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect or absent is required for receipt", index)
		}
	case AssertRuns:
		if len(a.Outcomes) == 0 {
			return fmt.Errorf("assertions[%d]: outcomes list is required for runs", index)
		}
	case AssertProveInput:
		if !isRole(a.Role) || a.Field == "" {
			return fmt.Errorf("assertions[%d]: role and field are required for prove_input", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func isRole(role string) bool {
	return role == claim.RoleDoctor || role == claim.RolePatient
}

// pollerConfig derives the poll budget for s.
func (s *Scenario) pollerConfig() poller.Config {
	pc := poller.DefaultConfig()
	pc.MaxWait = 0
	pc.Aggregate = s.ChainID != 0
	if s.MaxAttempts > 0 {
		pc.MaxAttempts = s.MaxAttempts
	}
	return pc
}
