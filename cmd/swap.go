package cmd

import (
	"fmt"

	units "github.com/docker/go-units"
	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
)

var swapCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Inspect or repair the installed hypervisor executable",
	}
	cmd.AddCommand(swapStatusCmd, swapRestoreCmd)
	return cmd
}()

var swapStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the installed executable is the original or a profile's",
	RunE:  runSwapStatus,
}

var swapRestoreCmd = &cobra.Command{
	Use:     "restore",
	Aliases: []string{"recover"},
	Short:   "Restore the installed executable from its backup",
	RunE:    runSwapRestore,
}

func runSwapStatus(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	m, err := initManager()
	if err != nil {
		return err
	}
	st, err := m.SwapStatus(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	asJSON, err := outputJSON(cmd)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(st)
	}
	w := newTable("KEY\tVALUE")
	_, _ = fmt.Fprintf(w, "state\t%s\n", st.State)
	_, _ = fmt.Fprintf(w, "executable\t%s (%s)\n", st.Executable, units.HumanSize(float64(st.ExecutableSize)))
	_, _ = fmt.Fprintf(w, "executable digest\t%s\n", st.ExecutableHash)
	_, _ = fmt.Fprintf(w, "backup\t%s\n", st.Backup)
	_, _ = fmt.Fprintf(w, "backup digest\t%s\n", orDash(st.BackupHash.String()))
	w.Flush() //nolint:errcheck,gosec
	return nil
}

func runSwapRestore(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	m, err := initManager()
	if err != nil {
		return err
	}
	if err := m.Recover(ctx); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	log.WithFunc("cmd.swap.restore").Infof(ctx, "installed executable restored from backup")
	return nil
}
