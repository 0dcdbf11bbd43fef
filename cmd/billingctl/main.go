// billingctl runs billing maintenance jobs outside the HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"tuitionhub_backend/internals/configs"
	database "tuitionhub_backend/internals/databases"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "billingctl",
		Short:   "Billing maintenance for the tuitionhub backend",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configs.LoadEnv()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(receiptsCmd())
	rootCmd.AddCommand(invoicesCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB() (*gorm.DB, error) {
	db, err := database.ConnectDB()
	if err != nil {
		return nil, err
	}
	database.TunePool(db)
	return db, nil
}
