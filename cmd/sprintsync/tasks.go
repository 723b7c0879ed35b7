package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/sprintsync/internal/app"
	"github.com/nhle/sprintsync/internal/engine"
	"github.com/nhle/sprintsync/internal/gateway"
	"github.com/nhle/sprintsync/internal/model"
	"github.com/nhle/sprintsync/internal/stats"
	"github.com/nhle/sprintsync/internal/store"
)

var errNotSignedIn = errors.New("not signed in; run 'sprintsync login'")

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"task", "t"},
	Short:   "List and change tasks",
}

var tasksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Args:    cobra.NoArgs,
	RunE:    runTasksList,
}

var tasksAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksAdd,
}

var tasksEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a task's title or description",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksEdit,
}

var tasksRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE:    runTasksRm,
}

var tasksMoveCmd = &cobra.Command{
	Use:   "move <id> <status>",
	Short: "Move a task to todo, in_progress or done",
	Args:  cobra.ExactArgs(2),
	RunE:  runTasksMove,
}

var (
	tasksListStatus  string
	tasksListQuery   string
	tasksListOffline bool
	tasksListJSON    bool

	tasksAddDescription string

	tasksEditTitle       string
	tasksEditDescription string
)

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksListCmd, tasksAddCmd, tasksEditCmd, tasksRmCmd, tasksMoveCmd)

	tasksListCmd.Flags().StringVarP(&tasksListStatus, "status", "s", "", "Only show tasks with this status")
	tasksListCmd.Flags().StringVarP(&tasksListQuery, "query", "q", "", "Only show tasks whose title or description contains this text")
	tasksListCmd.Flags().BoolVar(&tasksListOffline, "offline", false, "Read the local snapshot instead of the server")
	tasksListCmd.Flags().BoolVar(&tasksListJSON, "json", false, "Output as JSON")

	tasksAddCmd.Flags().StringVarP(&tasksAddDescription, "description", "d", "", "Description")

	tasksEditCmd.Flags().StringVar(&tasksEditTitle, "title", "", "New title")
	tasksEditCmd.Flags().StringVarP(&tasksEditDescription, "description", "d", "", "New description")
}

func runTasksList(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	filter := store.TaskFilter{}
	if tasksListStatus != "" {
		st, err := model.ParseStatus(tasksListStatus)
		if err != nil {
			return err
		}
		filter.Status = &st
	}
	if tasksListQuery != "" {
		filter.Query = &tasksListQuery
	}

	if !tasksListOffline {
		if err := rt.Engine.Refresh(ctx); err != nil {
			if !gateway.IsRetryable(err) {
				return errors.New(gateway.UserMessage(err))
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s Showing the offline copy.\n", gateway.UserMessage(err))
		}
	}
	// Refresh writes the snapshot, so both paths read it back filtered.
	tasks, err := rt.Store.GetTasks(ctx, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if tasksListJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}

	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks found.")
		return nil
	}
	fmt.Fprint(out, formatTasksTable(tasks))

	summary := stats.Summarize(tasks)
	fmt.Fprintf(out, "\n%d tasks · %.0f%% done · %s tracked\n",
		summary.Total, summary.Completion()*100, stats.FormatMinutes(summary.TotalMinutes))
	return nil
}

func runTasksAdd(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, false, func(ctx context.Context, eng *engine.Engine) (*engine.Mutation, error) {
		return eng.CreateTask(ctx, args[0], tasksAddDescription)
	})
}

func runTasksEdit(cmd *cobra.Command, args []string) error {
	var patch model.TaskPatch
	if cmd.Flags().Changed("title") {
		patch.Title = &tasksEditTitle
	}
	if cmd.Flags().Changed("description") {
		patch.Description = &tasksEditDescription
	}
	return withEngine(cmd, true, func(ctx context.Context, eng *engine.Engine) (*engine.Mutation, error) {
		return eng.UpdateTask(ctx, args[0], patch)
	})
}

func runTasksRm(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, true, func(ctx context.Context, eng *engine.Engine) (*engine.Mutation, error) {
		return eng.DeleteTask(ctx, args[0])
	})
}

func runTasksMove(cmd *cobra.Command, args []string) error {
	st, err := model.ParseStatus(args[1])
	if err != nil {
		return err
	}
	return withEngine(cmd, true, func(ctx context.Context, eng *engine.Engine) (*engine.Mutation, error) {
		return eng.ChangeStatus(ctx, args[0], st)
	})
}

// withEngine issues one mutation and waits for the server's answer.
// Operations on existing tasks refresh first so the id is known.
func withEngine(cmd *cobra.Command, refresh bool, issue func(context.Context, *engine.Engine) (*engine.Mutation, error)) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.Sessions.Active() {
		return errNotSignedIn
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if refresh {
		if err := rt.Engine.Refresh(ctx); err != nil {
			return errors.New(gateway.UserMessage(err))
		}
	}

	m, err := issue(ctx, rt.Engine)
	if err != nil {
		return errors.New(gateway.UserMessage(err))
	}
	task, err := m.Wait(ctx)
	if err != nil {
		return errors.New(gateway.UserMessage(err))
	}
	if err := rt.Engine.Drain(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, n := range drainNotifications(rt) {
		fmt.Fprintln(out, n.Message)
	}
	if m.Kind() != engine.KindDelete && task.ID != "" {
		fmt.Fprint(out, formatTasksTable([]model.Task{task}))
	}
	return nil
}

// drainNotifications collects outcomes already delivered by the engine.
func drainNotifications(rt *app.Runtime) []model.Notification {
	var out []model.Notification
	for {
		select {
		case n := <-rt.Notifications():
			out = append(out, n)
		default:
			return out
		}
	}
}

func formatTasksTable(tasks []model.Task) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			t.ID,
			t.Status.Label(),
			truncateTableCell(t.Title),
			stats.FormatMinutes(t.TotalMinutes),
			t.CreatedAt.Local().Format("2006-01-02"),
		})
	}
	return formatTable([]string{"ID", "STATUS", "TITLE", "TIME", "CREATED"}, rows)
}

