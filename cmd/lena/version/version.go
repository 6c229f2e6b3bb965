// Package versioncmder provides the version command.
package versioncmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sheeehy/lena/pkg/utils"
)

const versionShortDesc string = "Print the lena version"

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: versionShortDesc,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lena %s (%s, built %s)\n", utils.Version, utils.Sha, utils.Buildtime)
		},
	}
}
