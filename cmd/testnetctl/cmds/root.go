package cmds

import (
	"github.com/spf13/cobra"
)

func AddCommands(root *cobra.Command) error {
	root.AddCommand(newLaunchCmd())
	root.AddCommand(newJoinCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newWatchCmd())
	return nil
}
