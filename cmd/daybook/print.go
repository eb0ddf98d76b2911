package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/goodtune/daybook/internal/timeline"
	"github.com/goodtune/daybook/internal/tracker"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// printDay prints a day with its entries, totals and blocks
func printDay(view *tracker.DayView) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed, color.Bold)

	fmt.Println()
	cyan.Println(rule)
	cyan.Print("DAY " + view.Date + "  ")
	if view.Closed {
		red.Println("CLOSED")
	} else {
		green.Println("OPEN")
	}
	cyan.Println(rule)
	fmt.Println()

	if len(view.Segments) == 0 {
		fmt.Println("No entries")
	}
	for _, s := range view.Segments {
		end := "  ..."
		if s.Closed() {
			end = s.End.String()
		}
		line := fmt.Sprintf("%3d  %s-%s  %s  %s", s.Row, s.Start, end, s.Duration, s.Label)
		switch {
		case s.Running:
			green.Println(line)
		case s.IsBreak:
			yellow.Println(line)
		default:
			fmt.Println(line)
		}
		fmt.Printf("     %s\n", s.ID)
	}
	fmt.Println()

	cyan.Print("Work:   ")
	fmt.Printf("%s (%s)\n", view.Work, view.WorkText)
	cyan.Print("Breaks: ")
	fmt.Printf("%s (%s)\n", view.Breaks, view.BreaksText)

	if len(view.Blocks) > 0 {
		fmt.Println()
		cyan.Println("Blocks:")
		for _, b := range view.Blocks {
			fmt.Printf("     %s-%s  %3d min  %s\n", b.Start, b.End, b.DurationMinutes, b.Label)
		}
	}

	fmt.Println()
	cyan.Println(rule)
	fmt.Println()
}

// printStats prints what a reconciliation changed
func printStats(stats *timeline.Stats) {
	cyan := color.New(color.FgCyan, color.Bold)

	cyan.Println("Reconciled")
	fmt.Printf("  passes:             %d\n", stats.Passes)
	fmt.Printf("  gaps filled:        %d (%d breaks)\n", stats.GapsFilled, stats.GapBreaks)
	fmt.Printf("  overlaps corrected: %d\n", stats.OverlapsCorrected)
	fmt.Printf("  entries split:      %d (%d breaks)\n", stats.Splits, stats.SplitBreaks)
	fmt.Printf("  entries moved:      %d\n", stats.Reanchored)
}
