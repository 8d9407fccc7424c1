package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/spf13/cobra"
)

var (
	upgradeEmail    string
	upgradeActivate bool
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [plan]",
	Short: "Upgrade to a paid plan",
	Long: `Upgrade your account to a paid plan.

Without arguments the available plans are listed. With a plan (bas, pro, elite)
a checkout session is opened and its payment page URL printed. After paying,
run the command again with --activate to switch your account to the plan.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		cred, signedIn := a.account.Current()
		if len(args) == 0 {
			current := internal.PlanFree
			if signedIn {
				current = cred.User.PlanOrFree()
			}
			printPlans(out, current)
			return nil
		}

		product, err := internal.LookupProduct(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if upgradeActivate {
			if !signedIn {
				return fmt.Errorf("%w: run `synapse login` first", internal.ErrNotAuthenticated)
			}
			updated, err := a.account.UpdatePlan(ctx, product.Plan)
			if err != nil {
				return fmt.Errorf("failed to activate plan: %w", err)
			}
			_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("%s is now on %s", updated.User.Email, product.Name)))
			return nil
		}

		email := upgradeEmail
		if email == "" && signedIn {
			email = cred.User.Email
		}

		var sessionURL string
		err = internal.ShowProgress(ctx, "Opening checkout for "+product.Name, func() error {
			var err error
			sessionURL, err = a.client.Checkout(ctx, product.ID, email)
			return err
		})
		if err != nil {
			return fmt.Errorf("checkout failed: %w", err)
		}

		_, _ = fmt.Fprintln(out, "Complete your payment at:")
		_, _ = fmt.Fprintln(out, infoStyle.Render(sessionURL))
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, idStyle.Render(fmt.Sprintf("Then run `synapse upgrade %s --activate`", product.ID)))
		return nil
	},
}

func printPlans(out io.Writer, current internal.Plan) {
	_, _ = fmt.Fprintln(out, headerStyle.Render("Plans"))
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	for _, p := range internal.Products() {
		marker := " "
		if p.Plan == current {
			marker = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t$%d/month\t%s\t\n", marker, idStyle.Render(p.ID), titleStyle.Render(p.Name), p.PriceUSD, p.Description)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, dateStyle.Render("Current plan: "+string(current)))
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
	upgradeCmd.Flags().StringVar(&upgradeEmail, "email", "", "Billing email (defaults to your account email)")
	upgradeCmd.Flags().BoolVar(&upgradeActivate, "activate", false, "Switch your account to the plan after payment")
}
