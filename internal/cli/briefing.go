package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/engram/internal/briefing"
)

func init() {
	cmd := &cobra.Command{
		Use:   "briefing",
		Short: "Generate a project briefing",
		Long:  "Summarize active warnings, decisions, discoveries, and recent changes into a token-efficient briefing for a new agent session.",
		Run:   runBriefing,
	}

	cmd.Flags().StringP("scope", "s", "", "Scope path prefix")
	cmd.Flags().String("since", "", "Time filter: 24h, 7d, or ISO date (default: 7d)")
	cmd.Flags().String("focus", "", "Focus path for the focus-relevant section")
	cmd.Flags().Int("resolved-window", 0, "Recently-resolved lookback in hours (default from config: 48)")

	RootCmd.AddCommand(cmd)
}

func runBriefing(cmd *cobra.Command, args []string) {
	scope, _ := cmd.Flags().GetString("scope")
	since, _ := cmd.Flags().GetString("since")
	focus, _ := cmd.Flags().GetString("focus")
	resolvedWindow, _ := cmd.Flags().GetInt("resolved-window")

	if resolvedWindow <= 0 {
		resolvedWindow = loadConfig().ResolvedWindowHours
	}

	s := openStore()
	defer s.Close()

	result, err := briefing.NewGenerator(s).Generate(cmd.Context(), briefing.Params{
		Scope:               scope,
		Since:               since,
		Focus:               focus,
		ResolvedWindowHours: resolvedWindow,
	})
	if err != nil {
		exitErr("briefing", err)
	}

	if formatFlag == "json" {
		fmt.Println(result.JSON())
	} else {
		fmt.Println(result.Compact())
	}
}
