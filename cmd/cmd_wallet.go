package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Show the global reward wallet",
	RunE:  runWallet,
}

func runWallet(cmd *cobra.Command, _ []string) error {
	c, err := openContainer()
	if err != nil {
		return err
	}
	defer c.Close()

	balance, err := c.ReportService.Wallet(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "global_wallet: %d\n", balance)
	return nil
}
