package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Run with a single URL it measures
// that page.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pageweight <url>",
		Short: "Measure the total download size of a web page",
		Long: `pageweight fetches a web page and every external resource it references
(images, scripts, stylesheets, objects, embedded audio and video), follows
iframes one level deep, and reports the size and content type of each
download together with the total number of HTTP requests.

Examples:
  # Measure a page
  pageweight https://example.com/

  # Output a JSON report to a file
  pageweight --json -o report.json https://example.com/

  # Send a session cookie and an extra header
  pageweight --cookie "session=abc" -H "Accept-Language: en" https://example.com/

  # Route requests through a SOCKS5 proxy
  pageweight --proxy 127.0.0.1:9050 https://example.com/

Configuration file (.pageweight) example:
  defaults:
    userAgent: "Mozilla/5.0 (X11; Linux x86_64)"
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"`,
		Version:       getVersion(),
		Args:          cobra.ArbitraryArgs,
		RunE:          runMeasureCmd,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	addMeasureFlags(cmd)

	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
