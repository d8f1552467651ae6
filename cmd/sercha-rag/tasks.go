package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect the background task queue",
}

var (
	tasksStatus string
	tasksType   string
	tasksLimit  int
)

func init() {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List queued, running and finished tasks",
		Args:  cobra.NoArgs,
		RunE:  operatorRun(runTasksList),
	}
	listCmd.Flags().StringVar(&tasksStatus, "status", "", "pending, processing, completed or failed")
	listCmd.Flags().StringVar(&tasksType, "type", "", "task type, e.g. process_revision")
	listCmd.Flags().IntVar(&tasksLimit, "limit", 50, "maximum tasks to show")

	tasksCmd.AddCommand(
		listCmd,
		&cobra.Command{
			Use:   "stats",
			Short: "Count tasks by status",
			Args:  cobra.NoArgs,
			RunE:  operatorRun(runTasksStats),
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print one task as JSON",
			Args:  cobra.ExactArgs(1),
			RunE:  operatorRun(runTasksShow),
		},
		&cobra.Command{
			Use:   "cancel <id>",
			Short: "Cancel a task that has not been claimed yet",
			Args:  cobra.ExactArgs(1),
			RunE:  operatorRun(runTasksCancel),
		},
	)
	rootCmd.AddCommand(tasksCmd)
}

func runTasksList(ctx context.Context, a *app, out io.Writer, _ []string) error {
	filter, err := taskFilter(tasksStatus, tasksType, tasksLimit)
	if err != nil {
		return err
	}
	tasks, err := a.queue.ListTasks(ctx, filter)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tATTEMPTS\tUPDATED\tSTATUS")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%s\n",
			t.ID, t.Type, t.Attempts, t.MaxAttempts, t.UpdatedAt.Format(time.RFC3339), taskStatus(t))
	}
	return tw.Flush()
}

// taskFilter validates the list flags.
func taskFilter(status, taskType string, limit int) (driven.TaskFilter, error) {
	f := driven.TaskFilter{
		Status: domain.TaskStatus(status),
		Type:   domain.TaskType(taskType),
		Limit:  limit,
	}
	switch f.Status {
	case "", domain.TaskStatusPending, domain.TaskStatusProcessing, domain.TaskStatusCompleted, domain.TaskStatusFailed:
	default:
		return f, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	if limit < 0 {
		return f, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidInput)
	}
	return f, nil
}

func taskStatus(t *domain.Task) string {
	switch t.Status {
	case domain.TaskStatusFailed:
		return color.RedString("%s: %s", t.Status, t.Error)
	case domain.TaskStatusCompleted:
		return color.GreenString(string(t.Status))
	case domain.TaskStatusProcessing:
		return color.CyanString(string(t.Status))
	default:
		if t.Error != "" {
			return color.YellowString("%s (retry: %s)", t.Status, t.Error)
		}
		return string(t.Status)
	}
}

func runTasksStats(ctx context.Context, a *app, out io.Writer, _ []string) error {
	stats, err := a.queue.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "backend     %s\npending     %d\nprocessing  %d\ncompleted   %d\nfailed      %d\n",
		a.queueBackend, stats.PendingCount, stats.ProcessingCount, stats.CompletedCount, stats.FailedCount)
	if stats.OldestPendingAge > 0 {
		fmt.Fprintf(out, "oldest      %s\n", time.Duration(stats.OldestPendingAge)*time.Second)
	}
	return nil
}

func runTasksShow(ctx context.Context, a *app, out io.Writer, args []string) error {
	task, err := a.queue.GetTask(ctx, args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(task)
}

func runTasksCancel(ctx context.Context, a *app, out io.Writer, args []string) error {
	if err := a.queue.CancelTask(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out, "cancelled %s\n", args[0])
	return nil
}
