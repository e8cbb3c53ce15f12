package cmd

import (
	"fmt"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
)

var gcCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove containers whose VMX is gone and clear dangling profile references",
		RunE:  runGC,
	}
	cmd.Flags().Bool("dry-run", false, "report what would change without writing")
	return cmd
}()

func runGC(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	m, err := initManager()
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	report, err := m.GC(ctx, dryRun)
	if err != nil {
		return fmt.Errorf("gc: %w", err)
	}
	asJSON, err := outputJSON(cmd)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(report)
	}
	if report.Empty() {
		fmt.Println("Nothing to collect.")
		return nil
	}
	action := "removed"
	if dryRun {
		action = "would remove"
	}
	for _, id := range report.MissingDefinitions {
		fmt.Printf("%s container %s (VMX missing)\n", action, id)
	}
	for _, id := range report.DanglingProfiles {
		fmt.Printf("%s profile reference of container %s\n", action, id)
	}
	log.WithFunc("cmd.gc").Infof(ctx, "GC completed")
	return nil
}
