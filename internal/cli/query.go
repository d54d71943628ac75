package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/engram/internal/format"
	"github.com/rcliao/engram/internal/query"
)

func init() {
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Query events",
		Long:  "Query events with full-text search and/or structured filters. All filters combine with AND.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runQuery,
	}

	cmd.Flags().StringP("type", "t", "", "Event type(s), comma-separated")
	cmd.Flags().StringP("scope", "s", "", "Scope path prefix")
	cmd.Flags().String("since", "", "Time filter: 24h, 7d, or ISO date")
	cmd.Flags().StringP("agent", "a", "", "Filter by agent")
	cmd.Flags().String("related-to", "", "Find events related to this event ID")
	cmd.Flags().IntP("limit", "n", 50, "Max results")

	RootCmd.AddCommand(cmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	text := ""
	if len(args) > 0 {
		text = args[0]
	}
	typeStr, _ := cmd.Flags().GetString("type")
	scope, _ := cmd.Flags().GetString("scope")
	since, _ := cmd.Flags().GetString("since")
	agent, _ := cmd.Flags().GetString("agent")
	relatedTo, _ := cmd.Flags().GetString("related-to")
	limit, _ := cmd.Flags().GetInt("limit")

	p := query.Params{
		Text:      text,
		AgentID:   agent,
		Scope:     scope,
		Since:     since,
		RelatedTo: relatedTo,
		Limit:     limit,
	}
	if typeStr != "" {
		types, err := query.ParseEventTypes(typeStr)
		if err != nil {
			exitErr("query", err)
		}
		p.Types = types
	}

	s := openStore()
	defer s.Close()

	results, err := query.NewEngine(s).Execute(cmd.Context(), p)
	if err != nil {
		exitErr("query", err)
	}

	if formatFlag == "json" {
		fmt.Println(format.EventsJSON(results))
	} else {
		fmt.Println(format.Events(results))
	}
}
