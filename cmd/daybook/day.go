package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goodtune/daybook/internal/export"
	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/timeline"
	"github.com/goodtune/daybook/internal/timeofday"
	"github.com/spf13/cobra"
)

var (
	dayDate      string
	exportOutput string
)

var addCmd = &cobra.Command{
	Use:     "add START END LABEL...",
	Short:   "Record a finished activity",
	Example: `  daybook add 09:00 10:30 Planning
  daybook add -d 2024-05-13 13.00 13.45 Mittagspause`,
	Args: cobra.MinimumNArgs(3),
	RunE: runAdd,
}

var editCmd = &cobra.Command{
	Use:     "edit ID FIELD VALUE...",
	Short:   "Change the start, end or label of an entry",
	Example: `  daybook edit 6f1c... end 11:15`,
	Args:    cobra.MinimumNArgs(3),
	RunE:    runEdit,
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a finished entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the entries of a day",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair gaps, overlaps and over-long entries of a day",
	Args:  cobra.NoArgs,
	RunE:  runReconcile,
}

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Consolidate a day into reporting blocks",
	Args:  cobra.NoArgs,
	RunE:  runClose,
}

var reopenCmd = &cobra.Command{
	Use:   "reopen",
	Short: "Discard the blocks of a closed day so it can be edited again",
	Args:  cobra.NoArgs,
	RunE:  runReopen,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a day as CSV",
	Long:  `Export the blocks of a closed day, or the raw entries of an open one, as CSV.`,
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	for _, cmd := range []*cobra.Command{addCmd, editCmd, deleteCmd, showCmd, reconcileCmd, closeCmd, reopenCmd, exportCmd} {
		cmd.Flags().StringVarP(&dayDate, "date", "d", "", "Day to work on (YYYY-MM-DD), defaults to today")
		rootCmd.AddCommand(cmd)
	}
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write CSV to this file instead of stdout")
}

func selectedDate(a *app) string {
	if dayDate != "" {
		return dayDate
	}
	return a.tracker.Today()
}

func runAdd(cmd *cobra.Command, args []string) error {
	start, err := timeofday.Parse(args[0])
	if err != nil {
		return err
	}
	end, err := timeofday.Parse(args[1])
	if err != nil {
		return err
	}

	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.Close()

	view, err := a.tracker.Add(context.Background(), selectedDate(a), start, end, strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	printDay(view)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	field, err := timeline.ParseField(args[1])
	if err != nil {
		return err
	}

	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.Close()

	view, err := a.tracker.Edit(context.Background(), selectedDate(a), args[0], field, strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	printDay(view)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.Close()

	view, err := a.tracker.Delete(context.Background(), selectedDate(a), args[0])
	if err != nil {
		return err
	}
	printDay(view)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.Close()

	view, err := a.tracker.Day(context.Background(), selectedDate(a))
	if err != nil {
		return err
	}
	printDay(view)
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.tracker.Reconcile(context.Background(), selectedDate(a))
	if err != nil {
		return err
	}
	printStats(stats)
	return nil
}

func runClose(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.Close()

	view, err := a.tracker.Close(context.Background(), selectedDate(a))
	if err != nil {
		return err
	}
	printDay(view)
	return nil
}

func runReopen(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.Close()

	date := selectedDate(a)
	deleted, err := a.tracker.Reopen(context.Background(), date)
	if err != nil {
		return err
	}
	fmt.Printf("Reopened %s, %d blocks discarded\n", date, deleted)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.Close()

	view, err := a.tracker.Day(context.Background(), selectedDate(a))
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOutput, err)
		}
		defer f.Close()
		out = f
	}

	segments := make([]storage.Segment, len(view.Segments))
	for i, sv := range view.Segments {
		segments[i] = sv.Segment
	}
	return export.WriteDay(out, segments, view.Blocks)
}
