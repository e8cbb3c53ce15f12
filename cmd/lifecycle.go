package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	"github.com/cocoonstack/vmswap/operation"
	"github.com/cocoonstack/vmswap/vmrun"
)

var (
	startCmd = newVerbCmd(vmrun.VerbStart, "started", "Start VM(s) in the GUI, optionally with a hardware profile")
	stopCmd  = newVerbCmd(vmrun.VerbStop, "stopped", "Soft-stop VM(s)")
	pauseCmd = newVerbCmd(vmrun.VerbPause, "paused", "Pause VM(s)")
	resetCmd = newVerbCmd(vmrun.VerbReset, "reset", "Soft-reset VM(s)")
)

func newVerbCmd(verb vmrun.Verb, pastTense, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(verb) + " [flags] VMX [VMX...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			m, err := initManager()
			if err != nil {
				return err
			}
			profile, _ := cmd.Flags().GetString("profile")
			return batchVMCmd(ctx, string(verb), pastTense, args, func(ctx context.Context, vmx string) (*operation.Result, error) {
				return m.Perform(ctx, string(verb), vmx, profile)
			})
		},
	}
	cmd.Flags().String("profile", "", "hardware profile ID to substitute for the duration of the operation")
	return cmd
}

// batchVMCmd runs fn for each ref in order, reports per-ref results and
// returns the joined errors. Refs run one at a time.
func batchVMCmd(ctx context.Context, name, pastTense string, refs []string, fn func(context.Context, string) (*operation.Result, error)) error {
	logger := log.WithFunc("cmd." + name)
	var errs []error
	for _, ref := range refs {
		res, err := fn(ctx, ref)
		if res != nil && res.ProfileMissing {
			logger.Warnf(ctx, "%s: profile %s not found, ran without substitution", ref, res.ProfileID)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ref, describe(res, err)))
			continue
		}
		logger.Infof(ctx, "%s: %s", pastTense, ref)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// describe adds the outcome of the VM call when a restore failure would
// otherwise hide it.
func describe(res *operation.Result, err error) error {
	if res == nil || res.RestoreErr == nil || !res.Invoked {
		return err
	}
	if res.InvokeErr == nil {
		return fmt.Errorf("VM operation succeeded but restore failed: %w", res.RestoreErr)
	}
	return fmt.Errorf("VM operation failed (%w) and restore failed: %w", res.InvokeErr, res.RestoreErr)
}
