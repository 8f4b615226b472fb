// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the drizzle CLI.
// See docs/ARCHITECTURE § Command Surface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// secretsDir is where per-key secret files live, relative to the working
// directory.
const secretsDir = ".secrets/"

// rootCmd is the base command for the drizzle CLI.
var rootCmd = &cobra.Command{
	Use:   "drizzle",
	Short: "Generative execution for Go scripts with unimplemented functions",
	Long: `drizzle runs Go scripts in which some functions are declared but not
implemented. At call time each unimplemented function is synthesized by an
AI model from its signature and doc comment, validated, and executed in a
restricted sandbox. Functions that are never called are never generated.

Use run to execute a script, stubs to preview what would be synthesized,
and transcript to inspect recorded generation attempts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; a missing file is not an error.
		_ = godotenv.Load()
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./drizzle.yaml or ~/.config/drizzle/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("drizzle")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "drizzle"))
		}
	}

	viper.SetEnvPrefix("DRIZZLE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
