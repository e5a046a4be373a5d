// Package cmd provides the command-line interface for canopy with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	The CLI supports configuration through multiple sources with clear precedence:
//	1. Command-line flags (--config, --log-level, etc.) - highest priority
//	2. CANOPY_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (CANOPY_RENDER_FORMAT, etc.)
//	4. Configuration files (.canopy.yml) - lowest priority
//
// Environment Variables:
//
//	CANOPY_CONFIG_FILE: Path to custom configuration file
//	CANOPY_LOG_LEVEL: Override log level
//	CANOPY_RENDER_FORMAT: Default output of render
//	CANOPY_REGISTRY_CASE_FOLD: Fold kind keys before sharing
//	And more following the CANOPY_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "Build, inspect and render part-whole trees",
	Long: `Canopy reads tree documents made of shapes (leaves) and groups
(composites), shares identical shape kinds through a flyweight registry and
runs visitors over the result.

Documents are YAML, JSON or the compact notation:
  row(circle@0:0, (triangle, square))

Quick Start:
  canopy render tree.yaml              Print the tree's operation
  canopy render -f outline tree.yaml   Print an indented outline
  canopy stats tree.yaml               Count leaves, composites and shared kinds
  canopy walk --order post tree.yaml   List elements in post-order
  canopy convert -o json tree.canopy   Re-encode a document
  canopy watch tree.yaml               Rerender on every save
  canopy draw < shapes.txt             Draw shapes, reporting shared kinds

Use "-" or no file argument to read the document from standard input.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .canopy.yml, can also use CANOPY_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().StringP("input", "i", "", "input document format (yaml, json, expr); guessed from the file extension by default")
	rootCmd.PersistentFlags().Bool("case-fold", false, "share kinds whose keys differ only in case")

	bindRootFlags()
}

// rootBindings maps persistent flags to configuration keys.
var rootBindings = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"input":      "render.input",
	"case-fold":  "registry.case_fold",
}

// bindRootFlags binds the persistent flags to their configuration keys.
func bindRootFlags() {
	for flagName, key := range rootBindings {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flagName)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flagName, err))
		}
	}
}

// initConfig initializes the configuration system with support for multiple config sources.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. CANOPY_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .canopy.yml in current directory
//
// Every key can also be set through the environment with the CANOPY_
// prefix, for example CANOPY_RENDER_FORMAT=outline.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("CANOPY_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".canopy")
	}

	viper.SetEnvPrefix("CANOPY")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Unmarshal only sees keys viper already knows about
	for _, key := range []string{"render.format", "render.order"} {
		viper.SetDefault(key, "")
	}

	// A missing or unreadable file leaves the defaults in place
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
