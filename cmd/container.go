package cmd

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	"github.com/cocoonstack/vmswap/operation"
	"github.com/cocoonstack/vmswap/types"
	"github.com/cocoonstack/vmswap/vmrun"
)

var containerCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "container",
		Short: "Manage saved VM definitions and their profiles",
	}
	cmd.AddCommand(
		containerListCmd,
		containerAddCmd,
		containerRMCmd,
		containerScanCmd,
		containerWatchCmd,
		containerSetProfileCmd,
		containerInspectCmd,
	)
	for _, verb := range vmrun.Verbs {
		cmd.AddCommand(newContainerVerbCmd(verb))
	}
	return cmd
}()

var containerListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List containers",
	RunE:    runContainerList,
}

var containerAddCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [flags] VMX",
		Short: "Save a VM definition as a container",
		Args:  cobra.ExactArgs(1),
		RunE:  runContainerAdd,
	}
	cmd.Flags().String("name", "", "container name (default: VMX file name)")
	cmd.Flags().String("profile", "", "hardware profile ID to apply when running")
	return cmd
}()

var containerRMCmd = &cobra.Command{
	Use:   "rm CONTAINER [CONTAINER...]",
	Short: "Remove container(s)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runContainerRM,
}

var containerScanCmd = &cobra.Command{
	Use:   "scan DIR [DIR...]",
	Short: "Save every VM definition found under the given directories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runContainerScan,
}

var containerWatchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Save VM definitions as they are created under DIR",
	Args:  cobra.ExactArgs(1),
	RunE:  runContainerWatch,
}

var containerSetProfileCmd = &cobra.Command{
	Use:   "set-profile CONTAINER [PROFILE]",
	Short: "Associate a profile with a container (omit PROFILE to clear)",
	Args:  cobra.RangeArgs(1, 2), //nolint:mnd
	RunE:  runContainerSetProfile,
}

func newContainerVerbCmd(verb vmrun.Verb) *cobra.Command {
	return &cobra.Command{
		Use:   string(verb) + " CONTAINER [CONTAINER...]",
		Short: fmt.Sprintf("Run %s on container(s) with their profiles", verb),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			m, err := initManager()
			if err != nil {
				return err
			}
			return batchVMCmd(ctx, "container."+string(verb), string(verb)+" done", args, func(ctx context.Context, id string) (*operation.Result, error) {
				return m.RunContainer(ctx, string(verb), id)
			})
		},
	}
}

func runContainerList(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	m, err := initManager()
	if err != nil {
		return err
	}
	containers, err := m.ListContainers(ctx)
	if err != nil {
		return fmt.Errorf("list containers: %w", err)
	}
	asJSON, err := outputJSON(cmd)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(containers)
	}
	if len(containers) == 0 {
		fmt.Println("No containers found.")
		return nil
	}
	w := newTable("ID\tNAME\tVMX\tPROFILE\tCREATED")
	for _, c := range containers {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.ID,
			c.Name,
			c.VMXPath,
			orDash(c.HardwareProfileID),
			formatTime(c.CreatedAt),
		)
	}
	w.Flush() //nolint:errcheck,gosec
	return nil
}

func runContainerAdd(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	m, err := initManager()
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	profile, _ := cmd.Flags().GetString("profile")
	c, err := m.AddContainer(ctx, args[0], name, profile)
	if err != nil {
		return fmt.Errorf("add container: %w", err)
	}
	fmt.Println(c.ID)
	return nil
}

func runContainerRM(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	logger := log.WithFunc("cmd.container.rm")
	m, err := initManager()
	if err != nil {
		return err
	}
	if err := m.RemoveContainers(ctx, args...); err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	for _, id := range args {
		logger.Infof(ctx, "deleted container: %s", id)
	}
	return nil
}

func runContainerScan(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	logger := log.WithFunc("cmd.container.scan")
	m, err := initManager()
	if err != nil {
		return err
	}
	added, err := m.ScanContainers(ctx, args...)
	if err != nil {
		return err
	}
	for _, c := range added {
		logger.Infof(ctx, "added: %s (%s)", c.Name, c.VMXPath)
	}
	if len(added) == 0 {
		logger.Infof(ctx, "no new VM definitions found")
	}
	return nil
}

func runContainerWatch(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	logger := log.WithFunc("cmd.container.watch")
	m, err := initManager()
	if err != nil {
		return err
	}
	logger.Infof(ctx, "watching %s, press Ctrl-C to stop", args[0])
	return m.WatchContainers(ctx, args[0], func(c types.Container) {
		logger.Infof(ctx, "added: %s (%s)", c.Name, c.VMXPath)
	})
}

func runContainerSetProfile(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	m, err := initManager()
	if err != nil {
		return err
	}
	var profile string
	if len(args) > 1 {
		profile = args[1]
	}
	c, err := m.SetContainerProfile(ctx, args[0], profile)
	if err != nil {
		return fmt.Errorf("set-profile: %w", err)
	}
	log.WithFunc("cmd.container.set-profile").Infof(ctx, "%s: profile %s", c.ID, orDash(c.HardwareProfileID))
	return nil
}
