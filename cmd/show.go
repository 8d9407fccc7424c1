package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/spf13/cobra"
)

var showLimit int

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Show a conversation",
	Long:  `Print the messages of a conversation. The id may be abbreviated to a unique prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		a.hydrate(cmd.Context())
		conv, err := resolveConversation(a, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		displayConversationHeader(out, conv)

		messages := conv.Messages
		if showLimit > 0 && len(messages) > showLimit {
			messages = messages[len(messages)-showLimit:]
		}
		for _, m := range messages {
			displayMessage(out, m)
		}
		return nil
	},
}

func displayConversationHeader(out io.Writer, conv internal.Conversation) {
	_, _ = fmt.Fprintln(out, headerStyle.Render(conversationTitle(conv)))
	_, _ = fmt.Fprintln(out, idStyle.Render("ID: "+conv.ID))
	if !conv.CreatedAt.IsZero() {
		_, _ = fmt.Fprintln(out, dateStyle.Render(fmt.Sprintf("Created %s, updated %s",
			conv.CreatedAt.Local().Format(time.DateTime), conv.UpdatedAt.Local().Format(time.DateTime))))
	}
	_, _ = fmt.Fprintln(out, dateStyle.Render(fmt.Sprintf("%d message(s)", len(conv.Messages))))
	_, _ = fmt.Fprintln(out, strings.Repeat("─", 60))
	_, _ = fmt.Fprintln(out)
}

func displayMessage(out io.Writer, m internal.Message) {
	if m.Role == internal.RoleUser {
		_, _ = fmt.Fprintln(out, youStyle.Render("you:"))
	} else {
		_, _ = fmt.Fprintln(out, strings.TrimSpace(speaker(m)))
	}
	_, _ = fmt.Fprintln(out, m.Content)
	_, _ = fmt.Fprintln(out)
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "Show only the last n messages")
}
