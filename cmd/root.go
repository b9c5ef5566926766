package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the meetmcp application
var rootCmd = &cobra.Command{
	Use:   "meetmcp",
	Short: "MCP server for Google Meet meetings on Google Calendar",
	Long: `meetmcp is a Model Context Protocol server that lets AI assistants list,
create, update and delete Google Meet meetings and check calendar availability.

It authorizes with Google through a local browser flow on first use and keeps
the token on disk, refreshing it as needed.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "meetmcp version %s\n" .Version}}`)

	// MCP clients usually launch the binary without arguments.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
