package cmd

import (
	"fmt"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/spf13/cobra"
)

var quotaReset bool

// quotaCmd represents the quota command
var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show how many free guest requests are left",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if quotaReset {
			if err := a.quota.Reset(); err != nil {
				return fmt.Errorf("failed to reset guest quota: %w", err)
			}
			_, _ = fmt.Fprintln(out, successStyle.Render("Guest request count reset"))
		}

		if cred, ok := a.account.Current(); ok {
			_, _ = fmt.Fprintln(out, infoStyle.Render(fmt.Sprintf("Signed in as %s: requests are not limited by the guest quota", cred.User.Email)))
			return nil
		}

		count := a.quota.CurrentCount()
		_, _ = fmt.Fprintln(out, internal.QuotaBanner(count))
		_, _ = fmt.Fprintf(out, "Level: %s, %d remaining\n", internal.GuestQuotaLevel(count), max(internal.GuestLimit-count, 0))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quotaCmd)
	quotaCmd.Flags().BoolVar(&quotaReset, "reset", false, "Reset the guest request count on this device")
	_ = quotaCmd.Flags().MarkHidden("reset")
}
