package cmd

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cocoonstack/vmswap/config"
)

var (
	cfgFile string
	conf    *config.Config
)

var rootCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vmswap",
		Short:         "vmswap - hardware profile substitution for VMware Workstation VMs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().String("root-dir", "", "directory holding profiles, containers and settings")
	cmd.PersistentFlags().String("vmrun", "", "path to the vmrun control tool")
	cmd.PersistentFlags().Bool("strict-profile", false, "fail operations whose profile ID is unknown instead of running without substitution")
	cmd.PersistentFlags().String("format", formatAuto, "output format: auto, table or json")

	_ = viper.BindPFlag("root_dir", cmd.PersistentFlags().Lookup("root-dir"))
	_ = viper.BindPFlag("vmrun_binary", cmd.PersistentFlags().Lookup("vmrun"))
	_ = viper.BindPFlag("strict_profile", cmd.PersistentFlags().Lookup("strict-profile"))

	viper.SetEnvPrefix("VMSWAP")
	viper.AutomaticEnv()

	cmd.AddCommand(
		profileCmd,
		containerCmd,
		settingsCmd,
		swapCmd,
		runningCmd,
		gcCmd,
		startCmd,
		stopCmd,
		pauseCmd,
		resetCmd,
		versionCmd,
	)

	return cmd
}()

func initConfig() error {
	conf = config.DefaultConfig()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	if err := viper.Unmarshal(conf); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if conf.RootDir == "" {
		conf.RootDir = config.DefaultConfig().RootDir
	}
	if conf.VMRunBinary == "" {
		conf.VMRunBinary = "vmrun"
	}

	return log.SetupLog(context.Background(), &conf.Log, "")
}

// Execute is the main entry point called from main.go.
func Execute() error {
	ctx, cancel := newCommandContext()
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}
