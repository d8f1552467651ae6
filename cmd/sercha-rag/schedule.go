package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Inspect and control the maintenance schedule",
	Long: `Lists, triggers and toggles the recurring maintenance jobs that the
worker's scheduler enqueues: the stale revision reaper and the finished
task purge. Changes take effect on the scheduler's next poll.`,
}

func init() {
	scheduleCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show every schedule and its last outcome",
			Args:  cobra.NoArgs,
			RunE:  operatorRun(runScheduleList),
		},
		&cobra.Command{
			Use:   "trigger <id>",
			Short: "Enqueue one run now, outside the timetable",
			Args:  cobra.ExactArgs(1),
			RunE:  operatorRun(runScheduleTrigger),
		},
		&cobra.Command{
			Use:   "enable <id>",
			Short: "Resume a schedule",
			Args:  cobra.ExactArgs(1),
			RunE:  operatorRun(toggleSchedule(true)),
		},
		&cobra.Command{
			Use:   "disable <id>",
			Short: "Pause a schedule",
			Args:  cobra.ExactArgs(1),
			RunE:  operatorRun(toggleSchedule(false)),
		},
	)
	rootCmd.AddCommand(scheduleCmd)
}

// operatorRun opens storage and the queue for commands that never need the
// model providers.
func operatorRun(fn func(ctx context.Context, a *app, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		a := &app{cfg: cfg, logger: logger}
		defer a.Close()
		if err := a.openStorage(cmd.Context()); err != nil {
			return err
		}
		return fn(cmd.Context(), a, cmd.OutOrStdout(), args)
	}
}

func runScheduleList(ctx context.Context, a *app, out io.Writer, _ []string) error {
	s := a.newScheduler()
	if err := s.EnsureDefaults(ctx); err != nil {
		return err
	}
	schedules, err := s.Schedules(ctx)
	if err != nil {
		return err
	}
	writeSchedules(out, schedules, time.Now())
	return nil
}

func writeSchedules(out io.Writer, schedules []*domain.Schedule, now time.Time) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tJOB\tEVERY\tNEXT RUN\tLAST RUN\tSTATE")
	for _, sched := range schedules {
		last := "never"
		if sched.LastRun != nil {
			last = sched.LastRun.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			sched.ID,
			sched.Job,
			sched.Every,
			sched.NextRun.Format(time.RFC3339),
			last,
			scheduleState(sched, now),
		)
	}
	_ = tw.Flush()
}

// scheduleState is the last column so colour codes do not skew alignment.
func scheduleState(sched *domain.Schedule, now time.Time) string {
	switch {
	case !sched.Enabled:
		return color.YellowString("disabled")
	case sched.LastError != "":
		return color.RedString("failing: %s", sched.LastError)
	case sched.DueAt(now):
		return color.CyanString("due")
	default:
		return color.GreenString("ok")
	}
}

func runScheduleTrigger(ctx context.Context, a *app, out io.Writer, args []string) error {
	task, err := a.newScheduler().TriggerNow(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "enqueued %s task %s\n", task.Type, task.ID)
	return nil
}

func toggleSchedule(enabled bool) func(context.Context, *app, io.Writer, []string) error {
	return func(ctx context.Context, a *app, out io.Writer, args []string) error {
		sched, err := a.newScheduler().SetEnabled(ctx, args[0], enabled)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s, next run %s\n",
			sched.ID, scheduleState(sched, time.Now()), sched.NextRun.Format(time.RFC3339))
		return nil
	}
}
