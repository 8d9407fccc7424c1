package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/spf13/cobra"
)

var (
	authEmail    string
	authPassword string
	authName     string
)

// prompter reads missing values line by line
type prompter struct {
	r *bufio.Reader
	w io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{r: bufio.NewReader(cmd.InOrStdin()), w: cmd.OutOrStdout()}
}

// value returns current when set, otherwise asks for it
func (p *prompter) value(label, current string) (string, error) {
	if current != "" {
		return current, nil
	}
	_, _ = fmt.Fprintf(p.w, "%s: ", label)
	line, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		p := newPrompter(cmd)
		email, err := p.value("Email", authEmail)
		if err != nil {
			return err
		}
		password, err := p.value("Password", authPassword)
		if err != nil {
			return err
		}

		cred, err := a.account.Login(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Signed in as %s (%s)", cred.User.Email, cred.User.PlanOrFree())))
		return nil
	},
}

// registerCmd represents the register command
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		p := newPrompter(cmd)
		email, err := p.value("Email", authEmail)
		if err != nil {
			return err
		}
		password, err := p.value("Password", authPassword)
		if err != nil {
			return err
		}

		cred, err := a.account.Register(cmd.Context(), email, password, authName)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Account created, signed in as "+cred.User.Email))
		return nil
	},
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.account.Logout(); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Signed out"))
		return nil
	},
}

// whoamiCmd represents the whoami command
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account or guest usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if _, ok := a.account.Current(); !ok {
			_, _ = fmt.Fprintln(out, "Guest (device "+a.deviceID+")")
			_, _ = fmt.Fprintln(out, internal.QuotaBanner(a.quota.CurrentCount()))
			return nil
		}

		user, err := a.account.Refresh(cmd.Context())
		switch {
		case errors.Is(err, internal.ErrUnauthorized):
			_, _ = fmt.Fprintln(out, warningStyle.Render("Your session has expired. Run `synapse login` to sign in again."))
			return nil
		case err != nil:
			internal.LogWarn("Failed to refresh profile: %v", err)
			cred, _ := a.account.Current()
			user = cred.User
		}

		_, _ = fmt.Fprintln(out, titleStyle.Render(user.Email))
		if user.Name != "" {
			_, _ = fmt.Fprintln(out, "Name:  "+user.Name)
		}
		_, _ = fmt.Fprintln(out, "Plan:  "+string(user.PlanOrFree()))
		_, _ = fmt.Fprintf(out, "Paid:  %t\n", user.Paid())
		if user.SubscriptionStatus != "" {
			_, _ = fmt.Fprintln(out, "Subscription: "+user.SubscriptionStatus)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "Account email")
		c.Flags().StringVar(&authPassword, "password", "", "Account password (prompted when omitted)")
	}
	registerCmd.Flags().StringVar(&authName, "name", "", "Display name")
}
