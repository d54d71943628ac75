package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/engram/internal/format"
	"github.com/rcliao/engram/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post an event to the store",
		Run:   runPost,
	}

	cmd.Flags().StringP("type", "t", "", "Event type: discovery, decision, warning, mutation, outcome")
	cmd.Flags().StringP("content", "c", "", "Event content (max 2000 chars)")
	cmd.Flags().StringSliceP("scope", "s", nil, "File path(s) this event concerns")
	cmd.Flags().StringP("agent", "a", "", "Agent identifier")
	cmd.Flags().StringSliceP("related", "r", nil, "Related event ID(s)")
	cmd.Flags().String("priority", "", "Priority: critical, high, normal, low")
	cmd.Flags().String("session", "", "Session ID (defaults to the agent's active session)")

	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("content")

	RootCmd.AddCommand(cmd)
}

func runPost(cmd *cobra.Command, args []string) {
	typeStr, _ := cmd.Flags().GetString("type")
	content, _ := cmd.Flags().GetString("content")
	scope, _ := cmd.Flags().GetStringSlice("scope")
	agent, _ := cmd.Flags().GetString("agent")
	related, _ := cmd.Flags().GetStringSlice("related")
	priorityStr, _ := cmd.Flags().GetString("priority")
	sessionID, _ := cmd.Flags().GetString("session")

	eventType, err := model.ParseEventType(typeStr)
	if err != nil {
		exitErr("post", err)
	}
	priority := model.PriorityNormal
	if priorityStr != "" {
		priority, err = model.ParsePriority(priorityStr)
		if err != nil {
			exitErr("post", err)
		}
	}

	s := openStore()
	defer s.Close()
	ctx := cmd.Context()

	agent = agentID(agent)
	if sessionID == "" {
		// Auto-tag with the agent's active session, if any.
		if sess, err := s.GetActiveSession(ctx, agent); err == nil {
			sessionID = sess.ID
		}
	}

	event, err := s.Insert(ctx, model.Event{
		Type:       eventType,
		AgentID:    agent,
		Content:    content,
		Scope:      scope,
		RelatedIDs: related,
		Priority:   priority,
		SessionID:  sessionID,
	})
	if err != nil {
		exitErr("post", err)
	}

	if formatFlag == "json" {
		fmt.Println(format.EventsJSON([]model.Event{event}))
	} else {
		fmt.Println(format.Event(event))
	}
}
