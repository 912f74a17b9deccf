package command

import "github.com/spf13/cobra"

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breakpoint",
		Short: "Breakpoint",
	}

	cmd.AddCommand(newDebugCmd())

	return cmd
}
