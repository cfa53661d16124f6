package pkgbotcli

import (
	"fmt"

	"github.com/contenox/pkgbot/apiframework"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), apiframework.GetVersion())
		},
	}
}
