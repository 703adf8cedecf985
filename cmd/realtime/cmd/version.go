package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version and BuildTime are set at build time with ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func versionString() string {
	return fmt.Sprintf("%s %s", Version, BuildTime)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of realtime",
	Long:  `All software has versions. This is realtime's`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(versionString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
