package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/sprintsync/internal/model"
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show recent task notifications",
	Args:  cobra.NoArgs,
	RunE:  runActivity,
}

var (
	activityLimit    int
	activityMarkRead bool
)

func init() {
	rootCmd.AddCommand(activityCmd)

	activityCmd.Flags().IntVarP(&activityLimit, "limit", "n", 20, "Maximum number of entries")
	activityCmd.Flags().BoolVar(&activityMarkRead, "mark-read", false, "Mark every entry as read")
}

func runActivity(cmd *cobra.Command, args []string) error {
	if activityLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", activityLimit)
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	notifications, err := rt.Store.GetNotifications(ctx, activityLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(notifications) == 0 {
		fmt.Fprintln(out, "No activity yet.")
	} else {
		fmt.Fprint(out, formatActivityTable(notifications))
	}

	if activityMarkRead {
		return rt.Store.MarkAllNotificationsRead(ctx)
	}
	return nil
}

func formatActivityTable(ns []model.Notification) string {
	rows := make([][]string, 0, len(ns))
	for _, n := range ns {
		unread := ""
		if !n.Read {
			unread = "*"
		}
		rows = append(rows, []string{
			unread,
			n.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(n.Kind),
			n.TaskID,
			truncateTableCell(n.Message),
		})
	}
	return formatTable([]string{"", "WHEN", "KIND", "TASK", "MESSAGE"}, rows)
}
