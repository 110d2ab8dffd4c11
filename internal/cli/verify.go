package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/zkclaim/internal/claim"
)

// filesOutput renders the saved proof verification results.
type filesOutput struct {
	ClaimID string             `json:"claimId"`
	Success bool               `json:"success"`
	Results []claim.FileResult `json:"results"`
}

func (o filesOutput) WriteText(w io.Writer) error {
	for _, r := range o.Results {
		if r.Verified {
			fmt.Fprintf(w, "✓ %s: job %s %s\n", r.Role, r.JobID, r.Status)
			continue
		}
		fmt.Fprintf(w, "✗ %s: %s\n", r.Role, r.Error)
	}
	return nil
}

// NewVerifyFilesCommand re-verifies proofs saved by earlier runs.
func NewVerifyFilesCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		claimID string
		dir     string
	)

	cmd := &cobra.Command{
		Use:   "verify-files",
		Short: "Submit the saved doctor and patient proofs to the relay",
		Long: "Reads <dir>/<role>/proof.json and public.json for both roles and submits\n" +
			"them without proving again. Exits 1 unless both verify.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			a, err := rootOpts.openApp()
			if err != nil {
				return reportError(f, "verification not started", err)
			}
			defer a.Close()

			if dir == "" {
				dir = a.cfg.Artifacts.ProofsDir
			}
			if claimID == "" {
				claimID = claim.UUIDv7Generator{}.Generate()
			}

			ctx, cancel := rootOpts.commandContext(cmd)
			defer cancel()

			f.VerboseLog("Verifying saved proofs in %s", dir)
			results := a.orch.VerifyFiles(ctx, claimID, dir)
			out := filesOutput{ClaimID: claimID, Success: claim.AllVerified(results), Results: results}
			if err := f.Success(out); err != nil {
				return WrapExitError(ExitCommandError, "failed to write output", err)
			}
			if !out.Success {
				return NewExitError(ExitFailure, "saved proofs did not verify")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&claimID, "claim-id", "", "claim id recorded with the runs")
	cmd.Flags().StringVar(&dir, "dir", "", "saved proofs directory (default artifacts.proofs_dir)")
	return cmd
}
