// Package nathiacmder
package nathiacmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/nossamaternidade/nathia/cmd/nathia/chat"
	configcmder "github.com/nossamaternidade/nathia/cmd/nathia/config"
	versioncmder "github.com/nossamaternidade/nathia/cmd/nathia/version"
	"github.com/nossamaternidade/nathia/pkg/utils"
)

const nathiaLongDesc string = `NathIA is a conversational AI companion for maternal health.

Chat with NathIA using:
  nathia chat            Start an interactive chat session
  nathia config list     Show the persistent configuration

The backend endpoint and session token come from config.toml in the
.nathia/ directory, NATHIA_* environment variables, or flags.`

const nathiaShortDesc string = "NathIA - Maternal health AI companion"

func NewNathiaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "nathia",
		Short:   nathiaShortDesc,
		Long:    nathiaLongDesc,
		Version: utils.Version,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .nathia/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
