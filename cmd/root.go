// Package cmd wires the node's cobra commands, binding flags to viper
// the same way the example pack's server binaries do: each pflag gets a
// matching viper key, so SCUTTLEBUTT_-prefixed environment variables or
// a config file can override a default without touching the flag
// definitions.
package cmd

import (
	"fmt"
	"os"

	"github.com/mcastellin/scuttlebutt/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "scuttlebutt",
	Short: "A Scuttlebutt gossip membership node with a phi-accrual failure detector",
}

func init() {
	cobra.OnInitialize(initConfig)

	if err := config.BindFlags(rootCmd.PersistentFlags(), v); err != nil {
		panic(err)
	}
	rootCmd.PersistentFlags().String("config", "", "path to an optional config file")

	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read config file %s: %v\n", cfgFile, err)
		}
	}

	v.SetEnvPrefix("SCUTTLEBUTT")
	v.AutomaticEnv()
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
