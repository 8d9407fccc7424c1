package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/iksnae/synapse-chat/internal"
	"github.com/iksnae/synapse-chat/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat API locally against Ollama or an OpenAI-compatible runtime",
	Long: `Serve the chat API routes used by synapse clients:

  POST /api/chat              answer a turn via the local model runtime
  GET  /api/chat              runtime health and installed models
  GET  /api/health            liveness
  POST /api/stripe/checkout   open a subscription checkout (needs STRIPE_SECRET_KEY
                              and SYNAPSE_PUBLIC_URL)

The runtime is chosen with LLM_PROVIDER (ollama or openai).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		if err := cfg.Server.ValidateBilling(); err != nil {
			return err
		}

		backend, err := server.NewBackend(cfg.Server)
		if err != nil {
			return err
		}

		var checkout server.CheckoutCreator
		if sc, err := server.NewStripeCheckout(cfg.Server.StripeSecretKey); err == nil {
			checkout = sc
		} else {
			internal.LogWarn("Checkout disabled: %v", err)
		}

		if !verbose {
			gin.SetMode(gin.ReleaseMode)
			internal.SetLogLevel(internal.LogLevelInfo)
		}

		router := server.NewRouter(server.NewHandler(backend, checkout, cfg.Server.Prices, cfg.Server.PublicURL))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s on %s using %s at %s\n",
			successStyle.Render("Serving"), cfg.Server.Addr, backend.Label(), backend.Endpoint())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Run(ctx, cfg.Server.Addr, router)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default :3000)")
}
