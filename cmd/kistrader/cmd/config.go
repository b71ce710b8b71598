package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hanulsoft/kistrader/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print a default configuration file",
	Long: `Print the default YAML configuration to stdout.

Redirect it to a file and fill in the account identifiers; credentials
can stay in the environment (KIS_APP_KEY, KIS_APP_SECRET,
DISCORD_WEBHOOK_URL) or a .env file.

Example:
  kistrader config > config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.Default())
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
