package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/engram/internal/gc"
)

func init() {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Archive old events to reduce database size",
		Long:  "Move mutations and outcomes older than the cutoff into a monthly archive database. Warnings and decisions are always preserved regardless of age.",
		Run:   runGC,
	}

	cmd.Flags().Int("max-age", 0, "Archive events older than N days (default from config: 90)")
	cmd.Flags().Bool("dry-run", false, "Show what would be archived without doing it")

	RootCmd.AddCommand(cmd)
}

func runGC(cmd *cobra.Command, args []string) {
	maxAge, _ := cmd.Flags().GetInt("max-age")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if maxAge <= 0 {
		maxAge = loadConfig().GCMaxAgeDays
	}

	s := openStore()
	defer s.Close()

	result, err := gc.NewCollector(s, engramDir()).Collect(cmd.Context(), maxAge, dryRun)
	if err != nil {
		exitErr("gc", err)
	}

	switch {
	case dryRun:
		fmt.Printf("Would archive %d events older than %d days.\n", result.WouldArchive, maxAge)
	case result.Archived == 0:
		fmt.Printf("No events to archive (cutoff: %d days).\n", maxAge)
	default:
		fmt.Printf("Archived %d events to %s.\n", result.Archived, result.ArchivePath)
	}
}
