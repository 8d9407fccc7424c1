package cmd

import (
	"fmt"
	"io"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/spf13/cobra"
)

var healthcheckDetails bool

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check storage, sign-in state and chat service reachability",
	Long: `Check the health of synapse by verifying:
  • Configuration loading
  • Local storage access
  • Sign-in state and guest usage
  • Chat service reachability

This command is useful for debugging setup issues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		step := func(n int, title string) {
			_, _ = fmt.Fprintln(out, infoStyle.Render(fmt.Sprintf("Step %d: %s...", n, title)))
		}
		detail := func(format string, args ...interface{}) {
			if healthcheckDetails {
				_, _ = fmt.Fprintf(out, "   "+format+"\n", args...)
			}
		}

		_, _ = fmt.Fprintln(out, sectionStyle.Render("Synapse Health Check"))
		_, _ = fmt.Fprintln(out)

		step(1, "Loading configuration")
		cfg, err := loadConfig()
		if err != nil {
			fail(out, "Failed to load configuration:", err)
			return fmt.Errorf("health check failed: %w", err)
		}
		pass(out, "Configuration loaded")
		detail("Service: %s", cfg.APIURL)
		detail("Storage: %s (%s)", cfg.Storage.Path, cfg.Storage.Backend)
		_, _ = fmt.Fprintln(out)

		step(2, "Opening local storage")
		a, err := newApp()
		if err != nil {
			fail(out, "Failed to open storage:", err)
			return fmt.Errorf("health check failed: %w", err)
		}
		defer a.Close()
		local := len(a.manager.Conversations())
		pass(out, fmt.Sprintf("Storage available, %d conversation(s) on this device", local))
		detail("Device: %s", a.deviceID)
		_, _ = fmt.Fprintln(out)

		step(3, "Checking sign-in state")
		if cred, ok := a.account.Current(); ok {
			pass(out, "Signed in as "+cred.User.Email)
			if exp, err := cred.ExpiresAt(); err == nil {
				detail("Token expires %s", exp.Local().Format("2006-01-02 15:04"))
			}
		} else {
			count := a.quota.CurrentCount()
			if internal.GuestQuotaLevel(count) == internal.QuotaExhausted {
				warn(out, "Guest quota exhausted, sign in to keep chatting")
			} else {
				pass(out, fmt.Sprintf("Guest, %d of %d free requests used", count, internal.GuestLimit))
			}
		}
		_, _ = fmt.Fprintln(out)

		step(4, "Contacting the chat service")
		ctx := cmd.Context()
		var serviceErr error
		_ = internal.ShowProgress(ctx, "Checking "+cfg.APIURL, func() error {
			status, err := a.client.Health(ctx)
			if err == nil {
				detail("Status: %s", status.Status)
			}
			serviceErr = err
			return err
		})
		if serviceErr != nil {
			fail(out, "Chat service unreachable:", serviceErr)
		} else {
			pass(out, "Chat service reachable")
		}
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, sectionStyle.Render("Summary"))
		_, _ = fmt.Fprintln(out)
		if serviceErr != nil {
			_, _ = fmt.Fprintln(out, errorStyle.Render("Health check failed"))
			_, _ = fmt.Fprintln(out, "   • Local history is available, new messages cannot be sent")
			return fmt.Errorf("health check failed: %w", serviceErr)
		}
		_, _ = fmt.Fprintln(out, successStyle.Render("Health check passed!"))
		return nil
	},
}

func pass(out io.Writer, msg string) {
	_, _ = fmt.Fprintln(out, successStyle.Render("✓ "+msg))
}

func warn(out io.Writer, msg string) {
	_, _ = fmt.Fprintln(out, warningStyle.Render("! "+msg))
}

func fail(out io.Writer, msg string, err error) {
	_, _ = fmt.Fprintln(out, errorStyle.Render("✗ "+msg), err)
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckDetails, "details", "d", false, "Show detailed diagnostic information")
}
