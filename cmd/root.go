package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

const (
	appName           = "tanda-collector"
	defaultConfigPath = "config.yaml"
)

// NewRootCmd assembles the CLI.
func NewRootCmd(a *AppState) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "A confidential multi-chain payment collection engine for lending circles",
	}

	addAppPersistantFlags(rootCmd, a)

	rootCmd.AddCommand(
		startCmd(a),
		configShowCmd(a),
		versionCmd(),
	)

	return rootCmd
}

func Execute() {
	a := NewAppState()
	rootCmd := NewRootCmd(a)
	if err := rootCmd.Execute(); err != nil {
		if a.Logger != nil {
			a.Logger.Error(err.Error())
		}
		os.Exit(1)
	}
}
