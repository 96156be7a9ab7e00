package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baatasaari/agenthub-knowledge/internal/cli"
	"github.com/baatasaari/agenthub-knowledge/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "knowledged",
		Short: "AgentHub knowledge engine daemon",
		Long:  "Daemon for running the knowledge API server and managing tenants",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.TenantCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
