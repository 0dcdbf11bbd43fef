package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	database "tuitionhub_backend/internals/databases"
	auditService "tuitionhub_backend/internals/features/audit/service"
	invoiceService "tuitionhub_backend/internals/features/billing/invoices/service"
	"tuitionhub_backend/internals/helpers/worker"
)

func invoicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Invoice maintenance",
	}
	cmd.AddCommand(invoicesGenerateCmd())
	return cmd
}

func invoicesGenerateCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create the current period's invoices for every active fee plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			when := time.Now()
			if asOf != "" {
				t, err := time.Parse("2006-01-02", asOf)
				if err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
				when = t
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close(db)

			pool := worker.New(1, time.Minute)
			defer func() { _ = pool.Shutdown(context.Background()) }()
			audit := auditService.NewRecorder(db, pool)

			n, err := invoiceService.NewFeePlanService(db, audit).GenerateDueInvoices(cmd.Context(), when)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d invoices as of %s\n", n, when.Format("2006-01-02"))
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "period reference date (YYYY-MM-DD), default today")
	return cmd
}
