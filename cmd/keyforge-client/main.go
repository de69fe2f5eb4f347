// Command keyforge-client walks a file or directory, splits each
// candidate file into its signable segments, ships them to a keyforge
// server's sign stream, and writes the returned signature back.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "keyforge-client",
	Short: "keyforge signing client",
	Long: `keyforge-client drives the client-side signing pipeline: it walks a
file or directory, splits each matching file into the segments its key
type signs, ships them to a keyforge server over a websocket sign
stream, and writes the signature back into (or alongside) the
original file.`,
}

// configPath points at an optional client.yaml providing defaults for
// --server/--sign-stream/--token/--concurrency, the way signatrust's
// client reads its client.toml. Flags explicitly set on the command
// line always win over the file.
var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a client.yaml providing default server/token/concurrency settings")
}

func main() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
