// Package configcmder provides the config command for managing persistent
// nathia configuration stored in the .nathia/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent nathia configuration.

Configuration is stored as config.toml in the .nathia/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  backend.base_url, backend.chat_endpoint,
  backend.timeout_seconds, backend.stream_timeout_seconds,
  auth.token, history.sqlite_path,
  chat.preferred_provider, chat.on_device, chat.min_response_chars,
  ratelimit.chat_max_requests, ratelimit.chat_window_seconds,
  ratelimit.burst_max_requests, ratelimit.burst_window_seconds,
  log.level, log.format

Use subcommands to get, set, or list configuration values:
  nathia config set <key> <value>    Set a configuration value
  nathia config get <key>            Get a configuration value
  nathia config list                 List all configuration values

Examples:
  nathia config set backend.base_url https://myproject.functions.supabase.co
  nathia config set chat.preferred_provider claude
  nathia config get backend.base_url
  nathia config list`

const configShortDesc string = "Manage persistent nathia configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
