package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "upload",
		Short: "Direct-to-storage upload client",
		Long: `Uploads files straight to object storage.

The client asks the application server for a signed upload policy, then
posts the file together with the policy fields to the storage endpoint.

Configuration is read from UPLOAD_SERVER_URL, UPLOAD_SIGNATURE_PATH,
UPLOAD_STORAGE_URL and UPLOAD_TIMEOUT; flags take precedence.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(NewFileCommand())
	rootCmd.AddCommand(NewSignCommand())

	return rootCmd
}

// newLogger writes structured lifecycle logs to stderr
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
