package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ymcoiffure/salon-bookings/pkg/logger"
)

// newPurgeCmd and newRemindCmd run one maintenance job and exit, for hosts
// that prefer cron over the in-process scheduler.
func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete old appointments and expired verification codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logger.WithJob(cmd.Context(), "purge")
			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.scheduler().PurgeExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d appointments, %d pending verifications\n", res.Appointments, res.Pending)
			return nil
		},
	}
}

func newRemindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send reminder emails for tomorrow's appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logger.WithJob(cmd.Context(), "reminders")
			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			sent, err := a.scheduler().SendReminders(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d reminders\n", sent)
			return err
		},
	}
}
