package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var containerInspectCmd = &cobra.Command{
	Use:   "inspect CONTAINER",
	Short: "Show a container with its profile and VMX contents (JSON)",
	Args:  cobra.ExactArgs(1),
	RunE:  runContainerInspect,
}

func runContainerInspect(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	m, err := initManager()
	if err != nil {
		return err
	}
	info, err := m.InspectContainer(ctx, args[0])
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	return printJSON(info)
}
