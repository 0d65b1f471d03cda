package main

import (
	"github.com/spf13/cobra"

	"github.com/ymcoiffure/salon-bookings/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{migrate: true})
			if err != nil {
				return err
			}
			defer a.Close()
			logger.Info("Database is up to date")
			return nil
		},
	}
}
