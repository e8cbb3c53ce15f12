package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cocoonstack/vmswap/version"
)

var versionCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version, git revision, and build timestamp",
		Run: func(cmd *cobra.Command, _ []string) {
			if short, _ := cmd.Flags().GetBool("short"); short {
				fmt.Println(version.VERSION)
				return
			}
			fmt.Print(version.String())
		},
	}
	cmd.Flags().Bool("short", false, "print only the version number")
	return cmd
}()
