package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set via -ldflags at release build time.
var Version = "0.1.0-dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the squidsight version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("squidsight %s\n", Version)
		},
	}
}
