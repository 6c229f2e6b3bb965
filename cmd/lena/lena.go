// Package lenacmder is the root of the lena command tree.
package lenacmder

import (
	"github.com/spf13/cobra"

	addcmder "github.com/sheeehy/lena/cmd/lena/add"
	configcmder "github.com/sheeehy/lena/cmd/lena/config"
	initcmder "github.com/sheeehy/lena/cmd/lena/init"
	servecmder "github.com/sheeehy/lena/cmd/lena/serve"
	timelinecmder "github.com/sheeehy/lena/cmd/lena/timeline"
	versioncmder "github.com/sheeehy/lena/cmd/lena/version"
)

const lenaLongDesc string = `lena keeps your memories on a timeline, one bar per day.

Run without a command to open the timeline. Other commands:
  lena add        Add a memory from the command line
  lena serve      Run the API server
  lena init       Create a local .lena/ directory
  lena config     Read and write configuration`

const lenaShortDesc string = "lena - a timeline of your memories"

func NewLenaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "lena",
		Short:        lenaShortDesc,
		Long:         lenaLongDesc,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return timelinecmder.Run(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .lena/ config directory")

	// Add subcommands
	cmd.AddCommand(timelinecmder.NewTimelineCmd())
	cmd.AddCommand(addcmder.NewAddCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
