package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string
var verbose bool
var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "eon-audit",
	Short: "Domain security audit: subdomain takeover, DNS hygiene, TLS and security headers",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName(".eon-audit")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("EON_AUDIT")
		viper.AutomaticEnv()

		_ = viper.ReadInConfig()

		// init logger
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.eon-audit.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose (development) logging")

	viper.SetDefault("timeout", "5s")
	viper.SetDefault("concurrency", 8)
	viper.SetDefault("rate_limit", 0)
}
