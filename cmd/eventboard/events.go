package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventboard/internal/model"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List events ordered by start time",
	GroupID: "events",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		views, err := eventsClient.ListEvents(context.Background())
		if err != nil {
			return fmt.Errorf("listing events: %w", err)
		}
		return printEventList(cmd.OutOrStdout(), views, all)
	},
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show one event",
	GroupID: "events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := eventsClient.GetEvent(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting event %s: %w", args[0], err)
		}
		return printEvent(cmd.OutOrStdout(), v)
	},
}

var createCmd = &cobra.Command{
	Use:     "create <title>",
	Short:   "Record a new occurring event",
	GroupID: "events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := model.NewEventInput{Title: args[0]}
		in.Description, _ = cmd.Flags().GetString("description")
		in.Start, _ = cmd.Flags().GetString("start")
		if in.Start == "" {
			in.Start = time.Now().UTC().Format(time.RFC3339)
		}

		v, err := eventsClient.CreateEvent(context.Background(), in)
		if err != nil {
			return fmt.Errorf("creating event: %w", err)
		}
		return printEvent(cmd.OutOrStdout(), v)
	},
}

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	Short:   "Change fields of an event",
	GroupID: "events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := updateFromFlags(cmd)
		if err != nil {
			return err
		}
		if u.IsEmpty() {
			return fmt.Errorf("nothing to update; pass at least one of --title, --description, --start, --status, --hidden")
		}
		return applyUpdate(cmd, args[0], u)
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Short:   "Delete an event",
	GroupID: "events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := eventsClient.DeleteEvent(context.Background(), id); err != nil {
			return fmt.Errorf("deleting event %s: %w", id, err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]string{"id": id, "status": "deleted"})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
		return nil
	},
}

// updateFromFlags builds an EventUpdate from the flags the user changed.
func updateFromFlags(cmd *cobra.Command) (model.EventUpdate, error) {
	var u model.EventUpdate
	flags := cmd.Flags()
	if flags.Changed("title") {
		s, _ := flags.GetString("title")
		u.Title = &s
	}
	if flags.Changed("description") {
		s, _ := flags.GetString("description")
		u.Description = &s
	}
	if flags.Changed("start") {
		s, _ := flags.GetString("start")
		t, err := model.ParseTimestamp(s)
		if err != nil {
			return u, fmt.Errorf("--start: %w", err)
		}
		u.Start = &t
	}
	if flags.Changed("status") {
		s, _ := flags.GetString("status")
		st := model.Status(s)
		if !st.IsValid() {
			return u, fmt.Errorf("--status: invalid value %q (want %s or %s)", s, model.StatusOccurring, model.StatusResolved)
		}
		u.Status = &st
	}
	if flags.Changed("hidden") {
		b, _ := flags.GetBool("hidden")
		u.IsHidden = &b
	}
	return u, nil
}

func applyUpdate(cmd *cobra.Command, id string, u model.EventUpdate) error {
	v, err := eventsClient.UpdateEvent(context.Background(), id, u)
	if err != nil {
		return fmt.Errorf("updating event %s: %w", id, err)
	}
	return printEvent(cmd.OutOrStdout(), v)
}

func init() {
	listCmd.Flags().BoolP("all", "a", false, "include hidden events")

	createCmd.Flags().StringP("description", "d", "", "event description")
	createCmd.Flags().String("start", "", "start time, ISO-8601 (default now)")

	addUpdateFlags(updateCmd)
}

func addUpdateFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "new title")
	cmd.Flags().StringP("description", "d", "", "new description")
	cmd.Flags().String("start", "", "new start time, ISO-8601")
	cmd.Flags().String("status", "", "new status (occurring or resolved)")
	cmd.Flags().Bool("hidden", false, "hide the event from boards (--hidden=false to show it)")
}
