package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/goodtune/daybook/internal/timeline"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Preview what reconcile and close would do to a day",
	Long: `Check a day without changing it: list the repairs reconciliation would
make, whether the day can be closed, and the blocks it would consolidate into.`,
	Example: `  daybook check
  daybook -c config.yaml check -d 2024-05-13`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&dayDate, "date", "d", "", "Day to check (YYYY-MM-DD), defaults to today")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.Close()

	date := selectedDate(a)
	segments, err := a.store.Segments().ListByDate(context.Background(), date)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", date, err)
	}

	res, err := timeline.Reconcile(segments)
	if err != nil {
		return err
	}

	printCheckResult(date, res, timeline.ValidateForClose(res.Segments))
	return nil
}

// printCheckResult displays a reconciliation preview with colors
func printCheckResult(date string, res *timeline.Result, closeErr error) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed, color.Bold)

	fmt.Println()
	cyan.Println(rule)
	cyan.Println("DAY CHECK " + date)
	cyan.Println(rule)
	fmt.Println()

	if len(res.Changes) == 0 {
		green.Println("✓ No repairs needed")
	} else {
		yellow.Printf("%d repairs pending:\n", len(res.Changes))
		for _, c := range res.Changes {
			end := "..."
			if c.Segment.End != nil {
				end = c.Segment.End.String()
			}
			fmt.Printf("  %-7s %s-%s  %s\n", c.Kind, c.Segment.Start, end, c.Segment.Label)
		}
	}
	fmt.Println()

	if closeErr != nil {
		red.Print("✗ Cannot close: ")
		fmt.Println(closeErr)
	} else {
		green.Println("✓ Ready to close")
		for _, b := range timeline.Consolidate(res.Segments) {
			fmt.Printf("  %s-%s  %3d min  %s\n", b.Start, b.End, b.DurationMinutes, b.Label)
		}
	}

	fmt.Println()
	cyan.Println(rule)
	fmt.Println()
}
