package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show engram status",
		Run:   runStatus,
	}

	RootCmd.AddCommand(cmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	s := openStore()
	defer s.Close()
	ctx := cmd.Context()

	total, err := s.Count(ctx)
	if err != nil {
		exitErr("status", err)
	}
	last, err := s.LastActivity(ctx)
	if err != nil {
		exitErr("status", err)
	}
	projectName, _ := s.GetMeta(ctx, "project_name")
	if projectName == "" {
		projectName = "unknown"
	}
	initialized, _ := s.GetMeta(ctx, "initialized_at")
	if initialized == "" {
		initialized = "unknown"
	}

	var dbSize int64
	if info, err := os.Stat(dbPath()); err == nil {
		dbSize = info.Size()
	}

	if formatFlag == "json" {
		b, _ := json.MarshalIndent(map[string]any{
			"project_name":   projectName,
			"total_events":   total,
			"last_activity":  last,
			"initialized_at": initialized,
			"db_size_bytes":  dbSize,
		}, "", "  ")
		fmt.Println(string(b))
		return
	}

	if last == "" {
		last = "none"
	}
	fmt.Printf("Project:       %s\n", projectName)
	fmt.Printf("Events:        %d\n", total)
	fmt.Printf("Last activity: %s\n", last)
	fmt.Printf("Initialized:   %s\n", initialized)
	fmt.Printf("DB size:       %d bytes\n", dbSize)
}
