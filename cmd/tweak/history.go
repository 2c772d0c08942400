package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iishyfishyy/tweak/internal/history"
	"github.com/iishyfishyy/tweak/internal/ui"
)

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}

	if !cfg.HistoryEnabled() {
		ui.ShowInfo("History is disabled in the configuration")
		return nil
	}

	path, err := cfg.HistoryPath()
	if err != nil {
		return err
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ui.ShowInfo("No sessions recorded yet")
		return nil
	}

	ui.ShowSection("Recent sessions")
	for _, e := range entries {
		printEntry(e)
	}
	return nil
}

func printEntry(e history.Entry) {
	gray := color.New(color.FgHiBlack)
	stateColor := color.New(color.FgYellow)
	switch e.State {
	case "applied":
		stateColor = color.New(color.FgGreen)
	case "failed":
		stateColor = color.New(color.FgRed)
	}

	fmt.Printf("%s  ", e.Timestamp.Format("2006-01-02 15:04"))
	stateColor.Printf("%-9s", e.State)
	fmt.Printf("  %s", filepath.Base(e.File))
	gray.Printf("  %s/%s", e.Provider, e.Model)
	if e.Added+e.Deleted > 0 {
		fmt.Printf("  +%d -%d", e.Added, e.Deleted)
	}
	fmt.Println()

	if e.Instruction != "" {
		gray.Printf("    %q (%s ago)\n", e.Instruction, formatDuration(e.Timestamp))
	}
	if e.ErrorKind != "" {
		gray.Printf("    %s: %s\n", e.ErrorKind, e.Error)
	}
}

// formatDuration formats a time.Time as "X ago"
func formatDuration(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return "moments"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
