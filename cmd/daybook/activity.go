package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/daybook/internal/timeofday"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:     "start LABEL...",
	Short:   "Start a new activity",
	Long:    `Start a new activity today. It begins where the previous entry ended, or now on an empty day.`,
	Example: `  daybook start Code review`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running activity",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running activity",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.Close()

	started, err := a.tracker.Start(context.Background(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen, color.Bold)
	green.Print("Started ")
	fmt.Printf("%s at %s\n", started.Label, started.Start)
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stopped, err := a.tracker.Stop(context.Background())
	if err != nil {
		return err
	}

	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Print("Stopped ")
	fmt.Printf("%s %s-%s (%s)\n", stopped.Label, stopped.Start, stopped.End,
		timeofday.FormatDurationText(stopped.Duration()))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.tracker.EnforceCap(context.Background())
	if err != nil {
		return err
	}

	if status.Active == nil {
		fmt.Println("No activity running")
		return nil
	}
	if status.Capped {
		fmt.Printf("%s reached the two-hour limit and was closed\n", status.Active.Label)
		if status.Continued != nil {
			fmt.Printf("Continued as a new entry from %s\n", status.Continued.Start)
		}
		return nil
	}

	label := color.New(color.FgGreen, color.Bold)
	if status.Warning {
		label = color.New(color.FgYellow, color.Bold)
	}
	label.Print(status.Active.Label)
	fmt.Printf(" since %s (%s)\n", status.Active.Start, timeofday.FormatDurationText(status.RunningMinutes))
	return nil
}
