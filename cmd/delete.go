package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:     "delete <conversation-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a conversation",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		a.hydrate(ctx)
		conv, err := resolveConversation(a, args[0])
		if err != nil {
			return err
		}
		if err := deleteConversation(ctx, a, conv.ID); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Deleted %s (%s)", conv.ID, conversationTitle(conv))))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
