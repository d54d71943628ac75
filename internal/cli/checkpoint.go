package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/engram/internal/checkpoint"
	"github.com/rcliao/engram/internal/format"
)

func init() {
	cp := &cobra.Command{
		Use:   "checkpoint",
		Short: "Save and restore context snapshots",
	}

	save := &cobra.Command{
		Use:   "save <context-file>",
		Short: "Record a checkpoint for a context markdown file",
		Args:  cobra.ExactArgs(1),
		Run:   runCheckpointSave,
	}
	save.Flags().StringP("agent", "a", "", "Agent identifier")
	save.Flags().Bool("no-enrich", false, "Skip enriching the file with recent events")
	save.Flags().String("session", "", "Session ID to link this checkpoint to")

	restore := &cobra.Command{
		Use:   "restore [checkpoint-id]",
		Short: "Render saved context plus activity since the checkpoint",
		Args:  cobra.MaximumNArgs(1),
		Run:   runCheckpointRestore,
	}
	restore.Flags().StringP("scope", "s", "", "Scope path prefix for the activity briefing")
	restore.Flags().String("since", "", "Override the activity window start")
	restore.Flags().String("focus", "", "Focus path for the activity briefing")

	cp.AddCommand(save, restore)
	RootCmd.AddCommand(cp)
}

func runCheckpointSave(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("agent")
	noEnrich, _ := cmd.Flags().GetBool("no-enrich")
	sessionID, _ := cmd.Flags().GetString("session")

	s := openStore()
	defer s.Close()

	result, err := checkpoint.NewEngine(s).Save(
		cmd.Context(), args[0], agentID(agent), !noEnrich, sessionID)
	if err != nil {
		exitErr("checkpoint save", err)
	}

	if formatFlag == "json" {
		fmt.Println(format.CheckpointJSON(result))
	} else {
		fmt.Println(format.Checkpoint(result))
	}
}

func runCheckpointRestore(cmd *cobra.Command, args []string) {
	scope, _ := cmd.Flags().GetString("scope")
	since, _ := cmd.Flags().GetString("since")
	focus, _ := cmd.Flags().GetString("focus")

	id := ""
	if len(args) > 0 {
		id = args[0]
	}

	s := openStore()
	defer s.Close()

	out, err := checkpoint.NewEngine(s).Restore(cmd.Context(), id, since, scope, focus)
	if err != nil {
		exitErr("checkpoint restore", err)
	}
	fmt.Println(out)
}
