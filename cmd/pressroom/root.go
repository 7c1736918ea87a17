package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	envFile string
	verbose bool
	cfg     *config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pressroom",
	Short: "Marketing site and blog engine",
	Long: `pressroom serves a marketing site with a blog, a REST content API,
consent-gated analytics and an admin composer with AI-assisted writing.

Example usage:
  pressroom init mysite        # Write a starter pressroom.yaml
  pressroom serve              # Run the site
  pressroom sitemap > out.xml  # Print the sitemap`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}
		return initConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pressroom.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, sitemapCmd, initCmd, versionCmd)
}

// initConfig loads .env, then the config file and environment, and builds
// the logger.
func initConfig() error {
	// A missing .env is normal in production.
	_ = godotenv.Load(envFile)

	var err error
	cfg, err = loadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	logger, err = newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	logger.Debug("configuration loaded",
		zap.String("site_url", cfg.Site.URL),
		zap.String("addr", cfg.Site.Addr),
		zap.String("storage", cfg.Site.Storage),
	)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pressroom version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pressroom %s\n", version)
	},
}
