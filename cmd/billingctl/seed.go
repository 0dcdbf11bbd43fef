package main

import (
	"github.com/spf13/cobra"

	database "tuitionhub_backend/internals/databases"
	"tuitionhub_backend/internals/seeds"
)

func seedCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users, batches, enrollments and fee plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close(db)
			return seeds.RunAllSeeds(db, dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "internals/seeds", "seed data root")
	return cmd
}
