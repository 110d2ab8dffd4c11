package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/zkclaim/internal/store"
)

type receiptOutput struct {
	store.AggregationReceipt
}

func (r receiptOutput) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Claim:          %s\n", r.ClaimID)
	fmt.Fprintf(w, "Role:           %s\n", r.Role)
	fmt.Fprintf(w, "Aggregation ID: %s\n", r.AggregationID)
	fmt.Fprintf(w, "Root:           %s\n", r.Root)
	fmt.Fprintf(w, "Leaf:           %s (index %d)\n", r.LeafDigest, r.LeafIndex)
	fmt.Fprintf(w, "Path:           [%s]\n", strings.Join(r.MerklePath, ", "))
	fmt.Fprintf(w, "Proof hash:     %s\n", r.ProofHash)
	fmt.Fprintf(w, "Tx hash:        %s\n", r.TxHash)
	fmt.Fprintf(w, "Saved:          %s\n", r.SavedAt.Format(time.RFC3339))
	return nil
}

type receiptsOutput struct {
	ClaimID  string                     `json:"claimId"`
	Receipts []store.AggregationReceipt `json:"receipts"`
}

func (r receiptsOutput) WriteText(w io.Writer) error {
	for i, rc := range r.Receipts {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := (receiptOutput{rc}).WriteText(w); err != nil {
			return err
		}
	}
	return nil
}

// NewReceiptCommand prints stored aggregation receipts. With --claim and
// no --role it prints every receipt of the claim.
func NewReceiptCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		claimID string
		role    string
	)

	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Show the aggregation receipts of a claim (default: the latest)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			a, err := rootOpts.openLocal()
			if err != nil {
				return reportError(f, "receipt not read", err)
			}
			defer a.Close()

			notFound := func() error {
				_ = f.Error(CodeStore, "no aggregation receipt found", map[string]string{"claimId": claimID, "role": role})
				return NewExitError(ExitFailure, "no aggregation receipt found")
			}

			if claimID != "" && !cmd.Flags().Changed("role") {
				rcs, err := a.store.ReceiptsByClaim(cmd.Context(), claimID)
				if err != nil {
					return reportError(f, "receipt not read", err)
				}
				if len(rcs) == 0 {
					return notFound()
				}
				return f.Success(receiptsOutput{ClaimID: claimID, Receipts: rcs})
			}

			if role == "" {
				role = a.cfg.Claim.AggregationRole
			}

			var rc store.AggregationReceipt
			if claimID == "" {
				rc, err = a.store.LatestReceipt(cmd.Context(), role)
			} else {
				rc, err = a.store.ReadReceipt(cmd.Context(), claimID, role)
			}
			if errors.Is(err, store.ErrNotFound) {
				return notFound()
			}
			if err != nil {
				return reportError(f, "receipt not read", err)
			}
			return f.Success(receiptOutput{rc})
		},
	}

	cmd.Flags().StringVar(&claimID, "claim", "", "claim id (default: most recent receipt)")
	cmd.Flags().StringVar(&role, "role", "", "proof role (default claim.aggregation_role; with --claim, all roles)")
	return cmd
}

type runsOutput struct {
	ClaimID string           `json:"claimId"`
	Runs    []store.ClaimRun `json:"runs"`
}

func (r runsOutput) WriteText(w io.Writer) error {
	if len(r.Runs) == 0 {
		fmt.Fprintf(w, "No runs recorded for %s\n", r.ClaimID)
		return nil
	}
	for _, run := range r.Runs {
		fmt.Fprintf(w, "%s  %-8s %-10s job=%s status=%s",
			run.FinishedAt.Format(time.RFC3339), run.Role, run.Outcome, run.JobID, run.Status)
		if run.Detail != "" {
			fmt.Fprintf(w, " detail=%q", run.Detail)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// NewRunsCommand lists the recorded phase outcomes of a claim.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "runs <claim-id>",
		Short: "List the recorded phase outcomes of a claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			a, err := rootOpts.openLocal()
			if err != nil {
				return reportError(f, "runs not read", err)
			}
			defer a.Close()

			runs, err := a.store.RunsByClaim(cmd.Context(), args[0])
			if err != nil {
				return reportError(f, "runs not read", err)
			}
			return f.Success(runsOutput{ClaimID: args[0], Runs: runs})
		},
	}
}
