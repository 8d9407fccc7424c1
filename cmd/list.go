package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	Long: `List your conversations, newest first. When signed in the list is fetched
from the service and mirrored locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		a.hydrate(cmd.Context())
		convs := a.manager.Conversations()
		out := cmd.OutOrStdout()
		printConversationTable(out, convs)

		if len(convs) > 0 {
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, idStyle.Render("Tip: resume with `synapse chat -c "+convs[0].ID+"`"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
