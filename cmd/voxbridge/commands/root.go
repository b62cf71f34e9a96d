package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxbridge/voxbridge/pkg/cli"
)

var (
	// Global flags
	cfgFile     string
	contextName string
	outputFile  string
	outputJSON  bool
	verbose     bool

	// Global configuration
	globalConfig *cli.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voxbridge",
	Short: "Telephony to AI voice relay",
	Long: `voxbridge relays live phone calls to conversational AI endpoints.

The relay bridges Twilio media streams with OpenAI's Realtime API,
converting audio in both directions and cutting the AI off cleanly when
the caller interrupts. An alternative backend keeps the AI in text mode
and speaks its replies through ElevenLabs.

Configuration is stored in ~/.voxbridge/config.yaml and supports multiple
contexts, similar to kubectl's context management.

Examples:
  # Set up credentials
  voxbridge config set-context prod \
    --twilio-account-sid ACxxx --twilio-auth-token xxx \
    --openai-api-key sk-xxx

  # Run the relay server
  voxbridge serve --listen :8080 --public-host relay.example.com

  # Place an outbound call through the relay
  voxbridge call --to +15550100
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.voxbridge/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(callsCmd)
}

func initConfig() {
	var err error
	globalConfig, err = cli.LoadConfigWithPath(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// getContext returns the context configuration to use
func getContext() (*cli.Context, error) {
	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	ctx, err := globalConfig.ResolveContext(contextName)
	if err != nil {
		return nil, err
	}
	return ctx, nil
}

// outputResult outputs the result honoring the --json and --output flags
func outputResult(result any) error {
	format := cli.FormatYAML
	if outputJSON {
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{Format: format, File: outputFile})
}
