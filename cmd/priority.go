package cmd

import (
	"github.com/spf13/cobra"
)

var priorityCmd = &cobra.Command{
	Use:   "priority",
	Short: "Read issue priorities",
}

var priorityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every priority",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		localized, _ := cmd.Flags().GetBool("localized")
		priorities, err := client.Priorities.List(cmd.Context(), localized)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), cfg.Output, wire(priorities.Items()))
	},
}

var priorityGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Fetch a priority by key or id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := client.Priorities.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), cfg.Output, p.Encode(true))
	},
}

func init() {
	priorityListCmd.Flags().Bool("localized", true, "Return names in the user's language only")
	priorityCmd.AddCommand(priorityListCmd, priorityGetCmd)
	rootCmd.AddCommand(priorityCmd)
}
