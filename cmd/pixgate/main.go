package main

import (
	"os"

	"github.com/spf13/cobra"

	"pixgate/internal/interfaces/cli/migrate"
	"pixgate/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pixgate",
		Short: "Pixgate - PIX payment lifecycle reconciliation service",
		Long:  `Pixgate issues PIX QR-code charges through the EzzeBank gateway and reconciles their settlement through webhooks, polling, and background sweeps.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
