package cmd

import (
	"fmt"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
)

var profileCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Aliases: []string{"hw"},
		Short:   "Manage hardware profiles",
	}
	cmd.AddCommand(profileListCmd, profileAddCmd, profileRMCmd, profileScanCmd)
	return cmd
}()

var profileListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List hardware profiles",
	RunE:    runProfileList,
}

var profileAddCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [flags] NAME",
		Short: "Register a BIOS image and hypervisor executable as a profile",
		Args:  cobra.ExactArgs(1),
		RunE:  runProfileAdd,
	}
	cmd.Flags().String("bios", "", "path to the BIOS image")
	cmd.Flags().String("executable", "", "path to the hypervisor executable")
	_ = cmd.MarkFlagRequired("bios")
	_ = cmd.MarkFlagRequired("executable")
	return cmd
}()

var profileRMCmd = &cobra.Command{
	Use:   "rm PROFILE [PROFILE...]",
	Short: "Remove hardware profile(s)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProfileRM,
}

var profileScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Register the installation's stock BIOS image and executable as the default profile",
	RunE:  runProfileScan,
}

func runProfileList(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	m, err := initManager()
	if err != nil {
		return err
	}
	profiles, err := m.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	asJSON, err := outputJSON(cmd)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(profiles)
	}
	if len(profiles) == 0 {
		fmt.Println("No hardware profiles found.")
		return nil
	}
	w := newTable("ID\tNAME\tBIOS\tEXECUTABLE\tSIZE\tCREATED")
	for _, p := range profiles {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID,
			p.Name,
			p.BIOSPath,
			p.ExecutablePath,
			fileSize(p.ExecutablePath),
			formatTime(p.CreatedAt),
		)
	}
	w.Flush() //nolint:errcheck,gosec
	return nil
}

func runProfileAdd(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	m, err := initManager()
	if err != nil {
		return err
	}
	bios, _ := cmd.Flags().GetString("bios")
	exe, _ := cmd.Flags().GetString("executable")
	p, err := m.AddProfile(ctx, args[0], bios, exe)
	if err != nil {
		return fmt.Errorf("add profile: %w", err)
	}
	fmt.Println(p.ID)
	return nil
}

func runProfileRM(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	logger := log.WithFunc("cmd.profile.rm")
	m, err := initManager()
	if err != nil {
		return err
	}
	removed, err := m.RemoveProfiles(ctx, args...)
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	if !removed {
		logger.Warnf(ctx, "removing every profile would empty the collection; nothing was removed")
		return nil
	}
	for _, id := range args {
		logger.Infof(ctx, "deleted profile: %s", id)
	}
	return nil
}

func runProfileScan(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	m, err := initManager()
	if err != nil {
		return err
	}
	p, err := m.ScanDefaultProfile(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	log.WithFunc("cmd.profile.scan").Infof(ctx, "default profile: BIOS %s, executable %s", p.BIOSPath, p.ExecutablePath)
	return nil
}
