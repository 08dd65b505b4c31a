package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"storeseo-cli/cmd/config"
	"storeseo-cli/cmd/utils"
	"storeseo-cli/cmd/version"
	"storeseo-cli/internal/api"
	"storeseo-cli/internal/session"
)

var (
	debug          bool
	serverURLFlag  string
	sessionKeyFlag string
	overrideCwd    string
)

var rootCmd = &cobra.Command{
	Use:   "storeseo",
	Short: "StoreSEO assistant CLI - chat with your store's SEO copilot",
	Long: `storeseo is a command line client for the StoreSEO assistant. It keeps a
chat session with the assistant, shows your credit balance and lets you
switch the execution mode that governs how proposed fixes are applied.

Getting started:
  # Open the interactive assistant widget
  storeseo chat

  # Ask a single question
  storeseo chat "What are my most critical SEO issues?"

  # Group fixes into plans for batch approval
  storeseo mode PLAN`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		utils.OverrideCwd = overrideCwd
		// Pipes and log files get plain text
		utils.SetEmojiEnabled(stdoutIsTerminal())
		if debug {
			if err := utils.InitDebugLogger("", true); err != nil {
				utils.OutputWarning("debug log unavailable: %v", err)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		utils.CloseDebugLogger()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the command tree; interrupts cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&serverURLFlag, "server-url", "", "StoreSEO server URL (default: "+config.DefaultServerURL+")")
	rootCmd.PersistentFlags().StringVar(&sessionKeyFlag, "session-key", "", "Session key sent with every request (default: persisted per user)")
	rootCmd.PersistentFlags().StringVar(&overrideCwd, "cwd", "", "Override the directory searched for storeseo config and .env files")
}

// assistant bundles the resolved configuration with the controller built on it.
type assistant struct {
	cfg  *config.ServerConfig
	ctrl *session.Controller
}

// newAssistant resolves configuration and wires an API client into a fresh
// session controller. Extra options are applied after the defaults.
func newAssistant(opts ...session.Option) (*assistant, error) {
	cfg, err := config.GetServerConfig(utils.GetEffectiveCWD(), config.Overrides{
		ServerURL:  serverURLFlag,
		SessionKey: sessionKeyFlag,
	})
	if err != nil {
		return nil, err
	}

	if utils.IsInsecureRemote(cfg.URL) {
		utils.OutputWarning("%s is not using https; your session key is sent in clear text", cfg.URL)
	}
	if cfg.KeyMinted {
		utils.LogDebug("minted a new session key")
	}
	if cfg.ConfigPath != "" {
		utils.LogDebug(fmt.Sprintf("using config %s", cfg.ConfigPath))
	}

	ctrlOpts := []session.Option{
		session.WithLogger(utils.LogDebug),
		session.WithQuickActions(cfg.QuickActions),
	}
	ctrl := session.New(newAPIClient(cfg), cfg.SessionKey, append(ctrlOpts, opts...)...)
	return &assistant{cfg: cfg, ctrl: ctrl}, nil
}

func newAPIClient(cfg *config.ServerConfig) *api.Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = utils.DefaultRequestTimeout
	}
	return api.New(cfg.URL,
		api.WithHTTPClient(utils.GetHTTPClientWithTimeout(timeout)),
		api.WithRateLimit(cfg.RateLimit),
		api.WithUserAgent("storeseo-cli/"+version.FormatVersionForDisplay(version.CurrentVersion)),
		api.WithMinVersionHandler(warnIfOutdated),
	)
}

func warnIfOutdated(minVersion string) {
	c := version.CheckCompatibility(minVersion)
	utils.LogDebug(fmt.Sprintf("server requires client >= %s (have %s, known=%v)", c.Required, c.Current, c.Known))
	if w := c.Warning(); w != "" {
		utils.OutputWarning("%s", w)
	}
}
