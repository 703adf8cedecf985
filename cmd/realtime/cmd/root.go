package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "realtime",
	Short: "presence and notification fan-out for hackathon events",
	Long: `Realtime pushes live notifications to hackathon participants over
websockets: submission activity, judging presence, deadline warnings and
winner announcements, fanned out by event, submission, judging and team
scope. Run the service with 'realtime serve', mint bearer tokens with
'realtime token', and try the feed with 'realtime client'.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
