package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	labelsPrefix string
	labelsLimit  int
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List the most used activity labels",
	Args:  cobra.NoArgs,
	RunE:  runLabels,
}

func init() {
	labelsCmd.Flags().StringVarP(&labelsPrefix, "prefix", "p", "", "Only labels starting with this text")
	labelsCmd.Flags().IntVarP(&labelsLimit, "limit", "n", 0, "Maximum number of labels (default from config)")
	rootCmd.AddCommand(labelsCmd)
}

func runLabels(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.Close()

	suggestions, err := a.labels.Suggest(context.Background(), labelsPrefix, labelsLimit)
	if err != nil {
		return err
	}

	for _, s := range suggestions {
		fmt.Printf("%5d  %s  %s\n", s.UsageCount, s.LastUsed.Local().Format("2006-01-02 15:04"), s.Label)
	}
	return nil
}
