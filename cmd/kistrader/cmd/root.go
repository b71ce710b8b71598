package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kistrader",
	Short: "Intraday volatility-breakout trader for KIS brokerage accounts",
	Long: `Kistrader automates intraday trading of a single Korea Investment &
Securities account.

It watches a fixed list of symbols, liquidates residual holdings at the
open, buys symbols whose price breaks above the volatility target during
the trading window, and liquidates everything before the close. Every
order outcome is pushed to an operator webhook and optionally journaled.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
