package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/engram/internal/bootstrap"
	"github.com/rcliao/engram/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize engram in this project",
		Long:  "Initialize the project event store and seed it from git history.",
		Run:   runInit,
	}

	cmd.Flags().Int("max-commits", 0, "Max git commits to mine (default from config: 100)")

	RootCmd.AddCommand(cmd)
}

func runInit(cmd *cobra.Command, args []string) {
	project := projectDir()

	if _, err := os.Stat(engramDir()); err == nil {
		fmt.Printf("Engram already initialized in %s\n", project)
		return
	}

	maxCommits, _ := cmd.Flags().GetInt("max-commits")
	if maxCommits <= 0 {
		maxCommits = loadConfig().MaxCommits
	}

	s, err := store.Create(dbPath())
	if err != nil {
		exitErr("initialize store", err)
	}
	defer s.Close()

	ctx := cmd.Context()

	projectName := ""
	eventCount := 0
	if b, err := bootstrap.NewGitBootstrapper(project); err == nil {
		projectName = b.DetectProjectName()
		if events, err := b.MineHistory(maxCommits); err == nil && len(events) > 0 {
			n, err := s.InsertBatch(ctx, events)
			if err != nil {
				exitErr("seed events", err)
			}
			eventCount = n
		}
	}
	if projectName == "" {
		// Not a git repo; still initialize, just without seed data.
		projectName = projectNameFromDir(project)
	}

	if err := s.SetMeta(ctx, "project_name", projectName); err != nil {
		exitErr("set project name", err)
	}
	if err := s.SetMeta(ctx, "initialized_at", nowISO()); err != nil {
		exitErr("set initialized_at", err)
	}

	fmt.Printf("Engram initialized for %q. %d events seeded from git history.\n",
		projectName, eventCount)
}
