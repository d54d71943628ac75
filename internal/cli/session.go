package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/engram/internal/format"
	"github.com/rcliao/engram/internal/model"
	"github.com/rcliao/engram/internal/store"
)

func init() {
	session := &cobra.Command{
		Use:   "session",
		Short: "Manage agent work sessions",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start a session (auto-ends the agent's previous active session)",
		Run:   runSessionStart,
	}
	start.Flags().String("focus", "", "What this session is about (required)")
	start.Flags().StringSliceP("scope", "s", nil, "File path(s) this session concerns")
	start.Flags().StringP("agent", "a", "", "Agent identifier")
	start.Flags().StringP("description", "d", "", "Longer description")
	start.MarkFlagRequired("focus")

	end := &cobra.Command{
		Use:   "end [session-id]",
		Short: "End a session (defaults to the agent's active session)",
		Args:  cobra.MaximumNArgs(1),
		Run:   runSessionEnd,
	}
	end.Flags().StringP("agent", "a", "", "Agent identifier")

	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Run:   runSessionList,
	}
	list.Flags().Bool("all", false, "Include ended sessions")
	list.Flags().StringP("agent", "a", "", "Filter by agent")

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Auto-end stale sessions",
		Long:  "End any active session idle longer than the configured timeout. Models an agent process that crashed without a clean session end.",
		Run:   runSessionSweep,
	}
	sweep.Flags().Int("timeout", 0, "Timeout in hours (default from config: 24)")

	session.AddCommand(start, end, list, sweep)
	RootCmd.AddCommand(session)
}

func runSessionStart(cmd *cobra.Command, args []string) {
	focus, _ := cmd.Flags().GetString("focus")
	scope, _ := cmd.Flags().GetStringSlice("scope")
	agent, _ := cmd.Flags().GetString("agent")
	description, _ := cmd.Flags().GetString("description")

	s := openStore()
	defer s.Close()
	ctx := cmd.Context()
	agent = agentID(agent)

	// At most one active session per agent: starting a new one ends the old.
	if prev, err := s.GetActiveSession(ctx, agent); err == nil {
		if _, err := s.EndSession(ctx, prev.ID); err != nil {
			exitErr("end previous session", err)
		}
	}

	sess, err := s.InsertSession(ctx, model.Session{
		AgentID:     agent,
		Focus:       focus,
		Scope:       scope,
		Description: description,
	})
	if err != nil {
		exitErr("session start", err)
	}
	printSession(sess)
}

func runSessionEnd(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("agent")

	s := openStore()
	defer s.Close()
	ctx := cmd.Context()

	id := ""
	if len(args) > 0 {
		id = args[0]
	} else {
		sess, err := s.GetActiveSession(ctx, agentID(agent))
		if err != nil {
			exitErr("session end", err)
		}
		id = sess.ID
	}

	sess, err := s.EndSession(ctx, id)
	if err != nil {
		exitErr("session end", err)
	}
	printSession(sess)
}

func runSessionList(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")
	agent, _ := cmd.Flags().GetString("agent")

	s := openStore()
	defer s.Close()

	sessions, err := s.ListSessions(cmd.Context(), store.SessionFilter{
		ActiveOnly: !all,
		AgentID:    agent,
	})
	if err != nil {
		exitErr("session list", err)
	}

	if formatFlag == "json" {
		fmt.Println(format.SessionsJSON(sessions))
	} else {
		fmt.Println(format.Sessions(sessions))
	}
}

func runSessionSweep(cmd *cobra.Command, args []string) {
	timeout, _ := cmd.Flags().GetInt("timeout")
	if timeout <= 0 {
		timeout = loadConfig().SessionTimeoutHours
	}

	s := openStore()
	defer s.Close()

	n, err := s.CleanupStaleSessions(cmd.Context(), timeout)
	if err != nil {
		exitErr("session sweep", err)
	}
	fmt.Printf("Ended %d stale session(s).\n", n)
}

func printSession(sess model.Session) {
	if formatFlag == "json" {
		fmt.Println(format.SessionsJSON([]model.Session{sess}))
	} else {
		fmt.Println(format.Session(sess))
	}
}
