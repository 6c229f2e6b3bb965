// Package configcmder provides the config command for managing persistent
// lena configuration stored in the .lena/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sheeehy/lena/pkg/cliui"
	"github.com/sheeehy/lena/pkg/config"
)

const configLongDesc string = `Manage persistent lena configuration.

Configuration is stored as config.toml in the .lena/ directory and provides
default values for command flags. CLI flags always take precedence over
LENA_* environment variables, which take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  supabase.url, supabase.key, supabase.table,
  blob.provider, blob.path, blob.base_url, blob.bucket,
  api.listen, client.api_target,
  profile.birth_date, profile.start_year,
  events.kafka_brokers, events.kafka_topic,
  timeline.stagger_ms, timeline.duration_ms, timeline.animated_bars

Use subcommands to get, set, or list configuration values:
  lena config set <key> <value>    Set a configuration value
  lena config get <key>            Get a configuration value
  lena config list                 List all configuration values

Examples:
  lena config set profile.birth_date 1995-07-20
  lena config set storage.driver postgres
  lena config get storage.driver
  lena config list`

const configShortDesc string = "Manage persistent lena configuration"

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

// completeKeys offers config keys for the first positional argument.
func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// printTarget reports which config file a command reads or writes.
func printTarget(cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Printf("\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}
