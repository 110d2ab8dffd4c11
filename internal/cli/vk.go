package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/zkclaim/internal/claim"
	"github.com/roach88/zkclaim/internal/store"
)

// NewVKCommand groups verification key cache commands.
func NewVKCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vk",
		Short: "Manage relay verification key registrations",
	}
	cmd.AddCommand(newVKRegisterCommand(rootOpts))
	cmd.AddCommand(newVKListCommand(rootOpts))
	return cmd
}

type vkOutput struct {
	Role string `json:"role"`
	VKID string `json:"vkHash"`
}

func (o vkOutput) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s: %s\n", o.Role, o.VKID)
	return err
}

func newVKRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "register <role>",
		Short:     "Register a role's verification key (no-op when cached)",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{claim.RoleDoctor, claim.RolePatient},
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			role := args[0]

			a, err := rootOpts.openApp()
			if err != nil {
				return reportError(f, "registration not started", err)
			}
			defer a.Close()

			ctx, cancel := rootOpts.commandContext(cmd)
			defer cancel()

			id, err := a.registrar.Resolve(ctx, role, func() (json.RawMessage, error) {
				return a.artifacts.VerificationKey(role)
			})
			if err != nil {
				return reportError(f, "registration failed", err)
			}
			return f.Success(vkOutput{Role: role, VKID: id})
		},
	}
}

type vkListOutput []store.VerificationKeyRecord

func (o vkListOutput) WriteText(w io.Writer) error {
	if len(o) == 0 {
		fmt.Fprintln(w, "No verification keys cached")
		return nil
	}
	for _, rec := range o {
		fmt.Fprintf(w, "%-8s %s  (%s)\n", rec.Role, rec.VKID, rec.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func newVKListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached verification key registrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			a, err := rootOpts.openLocal()
			if err != nil {
				return reportError(f, "cache not read", err)
			}
			defer a.Close()

			recs, err := a.store.ListVKs(cmd.Context())
			if err != nil {
				return reportError(f, "cache not read", err)
			}
			return f.Success(vkListOutput(recs))
		},
	}
}
