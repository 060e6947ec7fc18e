// Daftar - Student registration analytics.
// Ingests semicolon-delimited registration exports and serves
// descriptive statistics and charts per demographic dimension.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daftar/daftar/pkg/config"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	inputFile    string
	outputFile   string
	formatFlag   string
	engineFlag   string
	sectionsFlag []string
	jsonOutput   bool
	noProgress   bool
	reportBook   bool
	configPath   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "daftar",
	Short: "Daftar - Student registration analytics",
	Long: `Daftar analyzes student registration exports (semicolon-delimited CSV
or XLSX) and reports distributions per demographic, geographic,
preference, parental-education, occupation, and income dimension.

Run "daftar serve" for the web dashboard or "daftar analyze" for a
terminal report.`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.daftar/config.yaml)")

	cobra.OnInitialize(func() {
		if configPath == "" {
			return
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		config.SetGlobal(cfg)
	})
}
