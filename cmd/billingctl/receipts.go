package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tuitionhub_backend/internals/configs"
	database "tuitionhub_backend/internals/databases"
	receiptService "tuitionhub_backend/internals/features/billing/receipts/service"
	"tuitionhub_backend/internals/helpers/storage"
	"tuitionhub_backend/internals/helpers/worker"
)

func receiptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "Receipt maintenance",
	}
	cmd.AddCommand(receiptsRegenerateCmd())
	return cmd
}

func receiptsRegenerateCmd() *cobra.Command {
	var (
		paymentID int64
		sweep     bool
		grace     time.Duration
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Re-render one receipt, or issue every missing receipt",
		Long: `Re-render one receipt, or issue every missing receipt.

Examples:
  billingctl receipts regenerate --payment-id 42
  billingctl receipts regenerate --sweep --grace 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (paymentID > 0) == sweep {
				return errors.New("pass exactly one of --payment-id or --sweep")
			}

			cfg, err := configs.LoadBillingConfig()
			if err != nil {
				return err
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close(db)

			ctx := cmd.Context()
			store, err := storage.NewFromConfig(ctx, cfg)
			if err != nil {
				return fmt.Errorf("receipt storage: %w", err)
			}
			pool := worker.New(cfg.WorkerConcurrency, 2*time.Minute)
			defer func() { _ = pool.Shutdown(context.Background()) }()
			gen := receiptService.NewGenerator(db, store, pool)

			if sweep {
				n, err := gen.Sweep(ctx, grace, limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "issued %d missing receipts\n", n)
				return nil
			}

			r, err := gen.Regenerate(ctx, paymentID)
			if err != nil {
				return fmt.Errorf("payment %d: %w", paymentID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", r.ReceiptNo, r.ReceiptDocumentPath)
			return nil
		},
	}

	cmd.Flags().Int64Var(&paymentID, "payment-id", 0, "payment whose receipt is re-rendered")
	cmd.Flags().BoolVar(&sweep, "sweep", false, "issue receipts for successful payments that have none")
	cmd.Flags().DurationVar(&grace, "grace", 5*time.Minute, "skip payments younger than this (sweep only)")
	cmd.Flags().IntVar(&limit, "limit", 500, "maximum payments per sweep")
	return cmd
}
