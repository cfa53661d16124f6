// Package pkgbotcli is the pkgbot command tree.
package pkgbotcli

import (
	"os"

	"github.com/contenox/pkgbot/serverapi"
	"github.com/spf13/cobra"
)

// Main runs the pkgbot CLI.
func Main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds a fresh command tree. Tests build their own so flag state
// does not leak between runs.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pkgbot",
		Short: "Recipe bookkeeping and Slack-approved trust updates for packaging recipes.",
		Long: `pkgbot tracks packaging recipes, posts recipe errors and trust diffs to
Slack, and runs the packaging tool when someone approves a trust update.

Configuration comes from environment variables (PORT, DATABASE_URL,
SLACK_BOT_TOKEN, ...) with an optional YAML file filling the gaps.

  Quickstart:
    pkgbot init                      # write pkgbot.yaml
    pkgbot token --hash-password     # hash the admin password for the config
    pkgbot serve                     # API plus an embedded trust worker
    pkgbot worker                    # extra trust workers against NATS`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "YAML config file; environment variables take precedence")

	rootCmd.AddCommand(newServeCmd(), newWorkerCmd(), newTokenCmd(), newInitCmd(), newVersionCmd())
	return rootCmd
}

// loadConfig reads the environment, overlays the --config file and installs
// the default logger.
func loadConfig(cmd *cobra.Command) (*serverapi.Config, error) {
	cfg, err := serverapi.Load()
	if err != nil {
		return nil, err
	}
	if path, _ := cmd.Flags().GetString("config"); path != "" && path != cfg.ConfigFile {
		cfg.ConfigFile = path
		if err := serverapi.LoadConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := serverapi.SetupLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
