package claim

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Required circuit inputs per role, before linkage.
var (
	DoctorFields  = []string{"procedure_code", "doctor_id", "date"}
	PatientFields = []string{"patient_id", "claim_amount", "policy_limit"}
)

// ValidateDoctor checks the doctor inputs.
func ValidateDoctor(in Inputs) error {
	return requireFields(RoleDoctor, in, DoctorFields)
}

// ValidatePatient checks the patient inputs and that the claim fits the
// policy limit.
func ValidatePatient(in Inputs) error {
	if err := requireFields(RolePatient, in, PatientFields); err != nil {
		return err
	}
	amount, err := parseField(RolePatient, in, "claim_amount")
	if err != nil {
		return err
	}
	limit, err := parseField(RolePatient, in, "policy_limit")
	if err != nil {
		return err
	}
	if amount.Cmp(limit) > 0 {
		return &ValidationError{
			Role:    RolePatient,
			Field:   "claim_amount",
			Message: fmt.Sprintf("%s exceeds policy limit %s", amount, limit),
		}
	}
	return nil
}

func requireFields(role string, in Inputs, fields []string) error {
	if err := distinctKeys(role, in); err != nil {
		return err
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(in[f]) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{
			Role:    role,
			Field:   missing[0],
			Message: "missing required fields: " + strings.Join(missing, ", "),
		}
	}
	return nil
}

// parseField reads a non-negative decimal field element.
func parseField(role string, in Inputs, field string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(in[field]), 10)
	if !ok || n.Sign() < 0 {
		return nil, &ValidationError{Role: role, Field: field, Message: fmt.Sprintf("%q is not a non-negative integer", in[field])}
	}
	return n, nil
}

// distinctKeys rejects inputs with two names that differ only in Unicode
// normalisation form.
func distinctKeys(role string, in Inputs) error {
	raw := make([]string, 0, len(in))
	for k := range in {
		raw = append(raw, k)
	}
	sort.Strings(raw)

	seen := make(map[string]string, len(in))
	for _, k := range raw {
		nk := norm.NFC.String(k)
		if prev, ok := seen[nk]; ok {
			return &ValidationError{
				Role:    role,
				Field:   nk,
				Message: fmt.Sprintf("input names %q and %q are the same after normalisation", prev, k),
			}
		}
		seen[nk] = k
	}
	return nil
}
