// Package main provides the voxbridge CLI.
//
// Usage:
//
//	voxbridge [flags] <command> [args]
//
// Commands:
//
//	serve    - Run the telephony relay server
//	call     - Place an outbound call through the relay
//	calls    - Inspect recorded calls and transcripts
//	config   - Configuration management
//
// Configuration:
//
//	The CLI stores configuration in ~/.voxbridge/config.yaml.
//	Use 'voxbridge config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/voxbridge/voxbridge/cmd/voxbridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
