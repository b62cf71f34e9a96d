package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/voxbridge/voxbridge/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Contexts hold the credentials and relay settings for one deployment,
similar to kubectl's context management.

Configuration is stored in ~/.voxbridge/config.yaml`,
}

var configSetContextCmd = &cobra.Command{
	Use:   "set-context <name>",
	Short: "Add or update a context",
	Long: `Add or update a context with the specified name.

Example:
  voxbridge config set-context prod \
    --twilio-account-sid ACxxx --twilio-auth-token xxx --twilio-from +15550200 \
    --openai-api-key sk-xxx --openai-voice alloy \
    --public-host relay.example.com --greeting "Hello, how can I help?"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		flags := cmd.Flags()

		ctx := &cli.Context{}
		if existing, ok := globalConfig.Contexts[name]; ok {
			ctx = existing
		}

		if sid, _ := flags.GetString("twilio-account-sid"); sid != "" {
			if ctx.Twilio == nil {
				ctx.Twilio = &cli.TwilioCredentials{}
			}
			ctx.Twilio.AccountSID = sid
		}
		if token, _ := flags.GetString("twilio-auth-token"); token != "" {
			if ctx.Twilio == nil {
				ctx.Twilio = &cli.TwilioCredentials{}
			}
			ctx.Twilio.AuthToken = token
		}
		if from, _ := flags.GetString("twilio-from"); from != "" {
			if ctx.Twilio == nil {
				ctx.Twilio = &cli.TwilioCredentials{}
			}
			ctx.Twilio.FromNumber = from
		}

		if key, _ := flags.GetString("openai-api-key"); key != "" {
			if ctx.OpenAI == nil {
				ctx.OpenAI = &cli.OpenAICredentials{}
			}
			ctx.OpenAI.APIKey = key
		}
		if model, _ := flags.GetString("openai-model"); model != "" {
			if ctx.OpenAI == nil {
				ctx.OpenAI = &cli.OpenAICredentials{}
			}
			ctx.OpenAI.Model = model
		}
		if voice, _ := flags.GetString("openai-voice"); voice != "" {
			if ctx.OpenAI == nil {
				ctx.OpenAI = &cli.OpenAICredentials{}
			}
			ctx.OpenAI.Voice = voice
		}

		if key, _ := flags.GetString("elevenlabs-api-key"); key != "" {
			if ctx.ElevenLabs == nil {
				ctx.ElevenLabs = &cli.ElevenLabsCredentials{}
			}
			ctx.ElevenLabs.APIKey = key
		}
		if voice, _ := flags.GetString("elevenlabs-voice-id"); voice != "" {
			if ctx.ElevenLabs == nil {
				ctx.ElevenLabs = &cli.ElevenLabsCredentials{}
			}
			ctx.ElevenLabs.VoiceID = voice
		}

		relaySettings := func() *cli.RelaySettings {
			if ctx.Relay == nil {
				ctx.Relay = &cli.RelaySettings{}
			}
			return ctx.Relay
		}
		if backend, _ := flags.GetString("backend"); backend != "" {
			relaySettings().Backend = backend
		}
		if instructions, _ := flags.GetString("instructions"); instructions != "" {
			relaySettings().Instructions = instructions
		}
		if greeting, _ := flags.GetString("greeting"); greeting != "" {
			relaySettings().Greeting = greeting
		}
		if recordDir, _ := flags.GetString("record-dir"); recordDir != "" {
			relaySettings().RecordDir = recordDir
		}

		if listen, _ := flags.GetString("listen"); listen != "" {
			if ctx.Server == nil {
				ctx.Server = &cli.ServerSettings{}
			}
			ctx.Server.Listen = listen
		}
		if host, _ := flags.GetString("public-host"); host != "" {
			if ctx.Server == nil {
				ctx.Server = &cli.ServerSettings{}
			}
			ctx.Server.PublicHost = host
		}

		if err := globalConfig.SetContext(name, ctx); err != nil {
			return err
		}
		fmt.Printf("Context %q saved\n", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := globalConfig.DeleteContext(args[0]); err != nil {
			return err
		}
		fmt.Printf("Context %q deleted\n", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Switch the active context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := globalConfig.UseContext(args[0]); err != nil {
			return err
		}
		fmt.Printf("Switched to context %q\n", args[0])
		return nil
	},
}

var configGetContextsCmd = &cobra.Command{
	Use:   "get-contexts",
	Short: "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tBACKEND\tOPENAI\tTWILIO")
		for _, name := range globalConfig.ListContexts() {
			ctx := globalConfig.Contexts[name]
			current := ""
			if name == globalConfig.CurrentContext {
				current = "*"
			}
			backend := ""
			if ctx.Relay != nil {
				backend = ctx.Relay.Backend
			}
			openaiKey := ""
			if ctx.OpenAI != nil {
				openaiKey = cli.MaskSecret(ctx.OpenAI.APIKey)
			}
			twilioSID := ""
			if ctx.Twilio != nil {
				twilioSID = ctx.Twilio.AccountSID
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", current, name, backend, openaiKey, twilioSID)
		}
		return w.Flush()
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the resolved context",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		// Copy with masked credentials for display.
		view := *ctx
		if ctx.Twilio != nil {
			masked := *ctx.Twilio
			masked.AuthToken = cli.MaskSecret(masked.AuthToken)
			view.Twilio = &masked
		}
		if ctx.OpenAI != nil {
			masked := *ctx.OpenAI
			masked.APIKey = cli.MaskSecret(masked.APIKey)
			view.OpenAI = &masked
		}
		if ctx.ElevenLabs != nil {
			masked := *ctx.ElevenLabs
			masked.APIKey = cli.MaskSecret(masked.APIKey)
			view.ElevenLabs = &masked
		}
		return outputResult(&view)
	},
}

func init() {
	flags := configSetContextCmd.Flags()
	flags.String("twilio-account-sid", "", "Twilio account SID")
	flags.String("twilio-auth-token", "", "Twilio auth token")
	flags.String("twilio-from", "", "Twilio caller number (E.164)")
	flags.String("openai-api-key", "", "OpenAI API key")
	flags.String("openai-model", "", "realtime model")
	flags.String("openai-voice", "", "realtime voice")
	flags.String("elevenlabs-api-key", "", "ElevenLabs API key")
	flags.String("elevenlabs-voice-id", "", "ElevenLabs voice ID")
	flags.String("backend", "", "relay backend: openai or elevenlabs")
	flags.String("instructions", "", "AI system prompt")
	flags.String("greeting", "", "greeting prompt; the AI speaks first when set")
	flags.String("record-dir", "", "directory for call transcripts")
	flags.String("listen", "", "server bind address")
	flags.String("public-host", "", "externally reachable hostname")

	configCmd.AddCommand(configSetContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
