package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runningCmd = &cobra.Command{
	Use:     "running",
	Aliases: []string{"ps"},
	Short:   "List running VMs as reported by vmrun",
	RunE:    runRunning,
}

func runRunning(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	m, err := initManager()
	if err != nil {
		return err
	}
	vms, err := m.RunningVMs(ctx)
	if err != nil {
		return fmt.Errorf("running: %w", err)
	}
	asJSON, err := outputJSON(cmd)
	if err != nil {
		return err
	}
	if asJSON {
		if vms == nil {
			vms = []string{}
		}
		return printJSON(vms)
	}
	if len(vms) == 0 {
		fmt.Println("No running VMs.")
		return nil
	}
	for _, vm := range vms {
		fmt.Println(vm)
	}
	return nil
}
