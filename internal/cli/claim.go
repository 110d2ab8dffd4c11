package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/zkclaim/internal/claim"
)

// claimOutput renders a full claim result.
type claimOutput struct {
	*claim.Result
}

func (c claimOutput) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Claim %s verified\n", c.ClaimID)
	writePhase(w, c.Doctor)
	writePhase(w, c.Patient)
	return nil
}

// proofOutput renders a single phase result.
type proofOutput struct {
	*claim.ProofResult
}

func (p proofOutput) WriteText(w io.Writer) error {
	writePhase(w, p.ProofResult)
	return nil
}

func writePhase(w io.Writer, r *claim.ProofResult) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "  %-8s job %s %s\n", r.Role+":", r.JobID, r.Status)
	fmt.Fprintf(w, "            proof hash %s\n", r.ProofHash)
	if r.TxHash != "" {
		fmt.Fprintf(w, "            tx %s\n", r.TxHash)
	}
	if rc := r.Receipt; rc != nil {
		fmt.Fprintf(w, "            receipt aggregation %s root %s leaf %d\n", rc.AggregationID, rc.Root, rc.LeafIndex)
	}
}

// NewDemoCommand runs the fixed example claim end to end.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	var claimID string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the example doctor and patient claim",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := claim.DemoClaim()
			c.ID = claimID
			return runClaim(cmd, rootOpts, c)
		},
	}

	cmd.Flags().StringVar(&claimID, "claim-id", "", "claim id (generated when empty)")
	return cmd
}

// NewClaimCommand runs a two-phase claim from flag inputs.
func NewClaimCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		claimID string
		doctor  map[string]string
		patient map[string]string
	)

	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Prove and verify a doctor attestation, then the linked patient claim",
		Long: "Runs the doctor phase and, once its job is terminal, the patient phase with\n" +
			"the doctor proof hash injected as the link input.",
		Example: "  zkclaim claim --doctor procedure_code=12345,doctor_id=67890,date=20240101 \\\n" +
			"    --patient patient_id=54321,claim_amount=1000,policy_limit=5000",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClaim(cmd, rootOpts, claim.Claim{
				ID:      claimID,
				Doctor:  claim.Inputs(doctor),
				Patient: claim.Inputs(patient),
			})
		},
	}

	cmd.Flags().StringVar(&claimID, "claim-id", "", "claim id (generated when empty)")
	cmd.Flags().StringToStringVar(&doctor, "doctor", nil, "doctor inputs as key=value pairs")
	cmd.Flags().StringToStringVar(&patient, "patient", nil, "patient inputs as key=value pairs")
	_ = cmd.MarkFlagRequired("doctor")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

func runClaim(cmd *cobra.Command, rootOpts *RootOptions, c claim.Claim) error {
	f := rootOpts.formatter(cmd)

	a, err := rootOpts.openApp()
	if err != nil {
		return reportError(f, "claim not started", err)
	}
	defer a.Close()

	ctx, cancel := rootOpts.commandContext(cmd)
	defer cancel()

	f.VerboseLog("Running claim against %s", a.cfg.Relay.URL)
	res, err := a.orch.Run(ctx, c)
	if err != nil {
		return reportError(f, "claim failed", err)
	}
	return f.Success(claimOutput{res})
}

// NewDoctorCommand runs the doctor phase alone.
func NewDoctorCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		claimID string
		inputs  map[string]string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Prove and verify a doctor attestation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			a, err := rootOpts.openApp()
			if err != nil {
				return reportError(f, "doctor phase not started", err)
			}
			defer a.Close()

			ctx, cancel := rootOpts.commandContext(cmd)
			defer cancel()

			res, err := a.orch.RunDoctorFlow(ctx, claimID, claim.Inputs(inputs))
			if err != nil {
				return reportError(f, "doctor phase failed", err)
			}
			return f.Success(proofOutput{res})
		},
	}

	cmd.Flags().StringVar(&claimID, "claim-id", "", "claim id (generated when empty)")
	cmd.Flags().StringToStringVar(&inputs, "input", nil, "doctor inputs as key=value pairs")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// NewPatientCommand runs the patient phase against a known doctor proof
// hash.
func NewPatientCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		claimID    string
		inputs     map[string]string
		doctorHash string
	)

	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Prove and verify a patient claim linked to a doctor proof",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			a, err := rootOpts.openApp()
			if err != nil {
				return reportError(f, "patient phase not started", err)
			}
			defer a.Close()

			ctx, cancel := rootOpts.commandContext(cmd)
			defer cancel()

			res, err := a.orch.RunPatientFlow(ctx, claimID, claim.Inputs(inputs), doctorHash)
			if err != nil {
				return reportError(f, "patient phase failed", err)
			}
			return f.Success(proofOutput{res})
		},
	}

	cmd.Flags().StringVar(&claimID, "claim-id", "", "claim id (generated when empty)")
	cmd.Flags().StringToStringVar(&inputs, "input", nil, "patient inputs as key=value pairs")
	cmd.Flags().StringVar(&doctorHash, "doctor-proof-hash", "", "first public signal of the doctor proof")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("doctor-proof-hash")
	return cmd
}
