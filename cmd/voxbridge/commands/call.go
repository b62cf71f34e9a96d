package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxbridge/voxbridge/pkg/twilio"
)

var (
	callTo      string
	callFrom    string
	callWebhook string
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Place an outbound call through the relay",
	Long: `Place an outbound call.

Twilio dials the destination; when the callee answers, it fetches the
webhook URL for TwiML and opens a media stream to the relay server.

Example:
  voxbridge call --to +15550100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		if ctx.Twilio == nil || ctx.Twilio.AccountSID == "" {
			return fmt.Errorf("context is missing Twilio credentials")
		}

		from := callFrom
		if from == "" {
			from = ctx.Twilio.FromNumber
		}
		if from == "" {
			return fmt.Errorf("caller number is required; set --from or the context's twilio.from_number")
		}
		if callTo == "" {
			return fmt.Errorf("--to is required")
		}

		webhook := callWebhook
		if webhook == "" {
			if ctx.Server == nil || ctx.Server.PublicHost == "" {
				return fmt.Errorf("webhook URL is required; set --webhook-url or the context's server.public_host")
			}
			webhook = "https://" + ctx.Server.PublicHost + "/call"
		}

		client := twilio.NewClient(ctx.Twilio.AccountSID, ctx.Twilio.AuthToken)
		call, err := client.PlaceCall(cmd.Context(), &twilio.CallRequest{
			To:         callTo,
			From:       from,
			WebhookURL: webhook,
		})
		if err != nil {
			return err
		}
		return outputResult(call)
	},
}

func init() {
	callCmd.Flags().StringVar(&callTo, "to", "", "destination number (E.164)")
	callCmd.Flags().StringVar(&callFrom, "from", "", "caller number (defaults to context's twilio.from_number)")
	callCmd.Flags().StringVar(&callWebhook, "webhook-url", "", "call webhook URL (defaults to https://<public_host>/call)")
}
