package cmd

import (
	"os"

	"github.com/habedi/storekeeper/pkg/clierr"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func Execute() {
	a := &app{}
	rootCmd := createRootCmd(a)

	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")

	err := rootCmd.Execute()
	a.close()
	if err != nil {
		log.Error().Err(err).Msg("Command execution failed.")
		os.Exit(clierr.ExitCode(err))
	}
}

func createRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "storekeeper",
		Short:        "A command-line client for the storekeeper back office",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		statusCmd(a),
		getCmd(a),
		catalogueCmd(a),
		invoiceCmd(a),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}
