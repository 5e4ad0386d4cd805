package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventboard/internal/client"
)

var subscribersCmd = &cobra.Command{
	Use:     "subscribers",
	Short:   "List live stream subscribers",
	GroupID: "streams",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ok := eventsClient.(*client.HTTPClient)
		if !ok {
			return fmt.Errorf("subscribers is only available over --transport http")
		}
		subs, err := c.Subscribers(context.Background())
		if err != nil {
			return fmt.Errorf("listing subscribers: %w", err)
		}
		return printSubscribers(cmd.OutOrStdout(), subs)
	},
}
