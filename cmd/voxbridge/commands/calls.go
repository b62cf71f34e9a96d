package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxbridge/voxbridge/pkg/callrecord"
)

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Inspect recorded calls",
	Long: `Inspect calls recorded by a relay server with record_dir set.

The record directory must not be open by a running server at the same
time; stop the server or point at a copy.`,
}

var callsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRecordStore()
		if err != nil {
			return err
		}
		defer store.Close()

		calls, err := store.Calls()
		if err != nil {
			return err
		}
		return outputResult(calls)
	},
}

var callsTranscriptCmd = &cobra.Command{
	Use:   "transcript <stream-sid>",
	Short: "Show a call's transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRecordStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.Transcript(args[0])
		if err != nil {
			return err
		}
		return outputResult(entries)
	},
}

func openRecordStore() (*callrecord.Store, error) {
	ctx, err := getContext()
	if err != nil {
		return nil, err
	}
	if ctx.Relay == nil || ctx.Relay.RecordDir == "" {
		return nil, fmt.Errorf("context has no relay.record_dir configured")
	}
	return callrecord.Open(callrecord.Options{Dir: ctx.Relay.RecordDir})
}

func init() {
	callsCmd.AddCommand(callsListCmd)
	callsCmd.AddCommand(callsTranscriptCmd)
}
