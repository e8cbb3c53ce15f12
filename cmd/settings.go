package cmd

import (
	"fmt"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
)

var settingsCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the installation settings",
	}
	cmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsValidateCmd, settingsDiscoverCmd)
	return cmd
}()

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set INSTALL_DIR",
	Short: "Validate and save the VMware Workstation installation directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsSet,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate INSTALL_DIR",
	Short: "Check that a directory is a VMware Workstation installation",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsValidate,
}

var settingsDiscoverCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find the installation directory on this host",
		RunE:  runSettingsDiscover,
	}
	cmd.Flags().Bool("save", false, "save the discovered directory")
	return cmd
}()

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	m, err := initManager()
	if err != nil {
		return err
	}
	settings, err := m.LoadSettings(ctx)
	if err != nil {
		return err
	}
	asJSON, err := outputJSON(cmd)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(settings)
	}
	w := newTable("KEY\tVALUE")
	_, _ = fmt.Fprintf(w, "installation_path\t%s\n", orDash(settings.InstallationPath))
	_, _ = fmt.Fprintf(w, "original_bios_path\t%s\n", orDash(settings.OriginalBIOSPath))
	_, _ = fmt.Fprintf(w, "original_executable_path\t%s\n", orDash(settings.OriginalExecutablePath))
	w.Flush() //nolint:errcheck,gosec
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	m, err := initManager()
	if err != nil {
		return err
	}
	settings, err := m.SetInstallation(ctx, args[0])
	if err != nil {
		return fmt.Errorf("set: %w", err)
	}
	log.WithFunc("cmd.settings.set").Infof(ctx, "installation: %s", settings.InstallationPath)
	return nil
}

func runSettingsValidate(cmd *cobra.Command, args []string) error {
	m, err := initManager()
	if err != nil {
		return err
	}
	if err := m.ValidateInstallation(args[0]); err != nil {
		return err
	}
	log.WithFunc("cmd.settings.validate").Infof(commandContext(cmd), "%s is a valid installation", args[0])
	return nil
}

func runSettingsDiscover(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	m, err := initManager()
	if err != nil {
		return err
	}
	root, err := m.DiscoverInstallation()
	if err != nil {
		return err
	}
	fmt.Println(root)
	if save, _ := cmd.Flags().GetBool("save"); save {
		if _, err := m.SetInstallation(ctx, root); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	return nil
}
