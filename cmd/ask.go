package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askConversation string
	askImage        string
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message and print the reply",
	Long: `Send a single message and print the reply. A new conversation is started
unless --conversation continues an existing one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		a.hydrate(ctx)
		if askConversation != "" {
			conv, err := resolveConversation(a, askConversation)
			if err != nil {
				return err
			}
			a.manager.LoadConversation(conv.ID)
		}

		t := newTranscript(cmd.OutOrStdout())
		unsubscribe := a.manager.Subscribe(t.observe)
		defer unsubscribe()

		outcome, err := submit(ctx, a, t, strings.Join(args, " "), askImage)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), idStyle.Render("conversation "+outcome.ConversationID))
		if outcome.Err != nil {
			return fmt.Errorf("chat request failed: %w", outcome.Err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askConversation, "conversation", "c", "", "Continue a conversation by ID")
	askCmd.Flags().StringVar(&askImage, "image", "", "Image (URL or data URI) to attach")
	askCmd.Flags().BoolVar(&searchWeb, "search-web", false, "Ask the service to search the web")
}
