package main

import (
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventboard/internal/model"
)

// shortcutCmd returns a command that applies a fixed update to one or more
// events.
func shortcutCmd(use, short string, u model.EventUpdate) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <id>...",
		Short:   short,
		GroupID: "events",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if err := applyUpdate(cmd, id, u); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func statusUpdate(s model.Status) model.EventUpdate { return model.EventUpdate{Status: &s} }

func hiddenUpdate(b bool) model.EventUpdate { return model.EventUpdate{IsHidden: &b} }

var (
	resolveCmd = shortcutCmd("resolve", "Mark events resolved", statusUpdate(model.StatusResolved))
	reopenCmd  = shortcutCmd("reopen", "Mark events occurring again", statusUpdate(model.StatusOccurring))
	hideCmd    = shortcutCmd("hide", "Hide events from boards", hiddenUpdate(true))
	unhideCmd  = shortcutCmd("unhide", "Show hidden events on boards again", hiddenUpdate(false))
)
