package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-go/internal/config"
	"github.com/commitlens/commitlens-go/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile    string
	verbose    bool
	jsonOutput bool
	logger     *logrus.Logger
	cfg        *config.Config
)

func main() {
	defer logging.Close()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "commitlens",
	Short: "CommitLens - commit analytics across your repository fleet",
	Long: `CommitLens discovers git repositories under registered workspace roots and
aggregates their commit history: filtered by author and date, merged across
every repository, cached per calendar month.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize logger
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		if err := logging.Initialize(logging.DefaultConfig(verbose)); err != nil {
			logger.WithError(err).Warn("Failed to initialize structured logging")
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .commitlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit JSON instead of tables")

	rootCmd.SetVersionTemplate(`CommitLens {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(commitsCmd)
	rootCmd.AddCommand(changesCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(authorsCmd)
	rootCmd.AddCommand(configCmd)
}
