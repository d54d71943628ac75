package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/engram/internal/format"
	"github.com/rcliao/engram/internal/model"
)

func init() {
	resolve := &cobra.Command{
		Use:   "resolve <event-id>",
		Short: "Mark an event resolved",
		Args:  cobra.ExactArgs(1),
		Run:   runResolve,
	}
	resolve.Flags().StringP("reason", "r", "", "Why the event is resolved (required)")
	resolve.MarkFlagRequired("reason")

	supersede := &cobra.Command{
		Use:   "supersede <event-id>",
		Short: "Mark an event superseded by another",
		Args:  cobra.ExactArgs(1),
		Run:   runSupersede,
	}
	supersede.Flags().String("by", "", "ID of the superseding event (required)")
	supersede.MarkFlagRequired("by")

	reopen := &cobra.Command{
		Use:   "reopen <event-id>",
		Short: "Reopen a resolved event",
		Args:  cobra.ExactArgs(1),
		Run:   runReopen,
	}

	RootCmd.AddCommand(resolve, supersede, reopen)
}

func runResolve(cmd *cobra.Command, args []string) {
	reason, _ := cmd.Flags().GetString("reason")
	updateStatus(cmd, args[0], model.StatusResolved, reason, "")
}

func runSupersede(cmd *cobra.Command, args []string) {
	by, _ := cmd.Flags().GetString("by")
	updateStatus(cmd, args[0], model.StatusSuperseded, "", by)
}

func runReopen(cmd *cobra.Command, args []string) {
	updateStatus(cmd, args[0], model.StatusActive, "", "")
}

func updateStatus(cmd *cobra.Command, id string, status model.Status, reason, by string) {
	s := openStore()
	defer s.Close()

	event, err := s.UpdateStatus(cmd.Context(), id, status, reason, by)
	if err != nil {
		exitErr(string(status), err)
	}

	if formatFlag == "json" {
		fmt.Println(format.EventsJSON([]model.Event{event}))
	} else {
		fmt.Println(format.Event(event))
	}
}
