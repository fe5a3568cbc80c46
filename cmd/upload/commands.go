package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tendant/direct-upload/pkg/config"
	"github.com/tendant/direct-upload/pkg/directupload"
)

type clientFlags struct {
	serverURL  string
	storageURL string
	timeout    time.Duration
	jsonOutput bool
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.serverURL, "server", "", "application server hosting the signature endpoint (default: $UPLOAD_SERVER_URL)")
	cmd.Flags().StringVar(&f.storageURL, "storage-url", "", "storage endpoint the form is posted to (default: <server>/upload)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "overall timeout (default: $UPLOAD_TIMEOUT or 30m)")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "print the result as JSON")
}

func (f *clientFlags) load() (*config.ClientConfig, error) {
	return config.LoadClient(
		config.WithClientEnv(),
		config.WithServerURL(f.serverURL),
		config.WithStorageURL(f.storageURL),
		config.WithTimeout(f.timeout),
	)
}

// uploadResult is printed after a successful upload
type uploadResult struct {
	File     string `json:"file"`
	Key      string `json:"key"`
	Status   int    `json:"status"`
	Location string `json:"location,omitempty"`
	Bucket   string `json:"bucket,omitempty"`
	ETag     string `json:"etag,omitempty"`
}

// NewFileCommand creates the upload command for a single local file
func NewFileCommand() *cobra.Command {
	var flags clientFlags
	var mimeType string

	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Upload a local file directly to storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			file, closer, err := directupload.OpenFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer closer.Close()
			if mimeType != "" {
				file.MimeType = mimeType
			}

			verbose, _ := cmd.Flags().GetBool("verbose")
			logger := newLogger(cmd.ErrOrStderr(), verbose)

			orch, err := cfg.BuildOrchestrator(
				directupload.WithLogger(logger),
				directupload.WithHooks(directupload.LoggingHooks(logger)),
			)
			if err != nil {
				return fmt.Errorf("failed to create uploader: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			// the attempt itself observes ctx, so Done always closes
			attempt := orch.Select(ctx, file)
			<-attempt.Done()
			resp, err := attempt.Response(), attempt.Err()
			if err != nil {
				return fmt.Errorf("upload failed (%s): %w", directupload.Kind(err), err)
			}

			result := uploadResult{
				File:     file.Name,
				Key:      attempt.ObjectKey(),
				Status:   resp.StatusCode,
				Location: resp.Location,
				Bucket:   resp.Bucket,
				ETag:     resp.ETag,
			}

			out := cmd.OutOrStdout()
			if flags.jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Fprintf(out, "Upload successful!\n")
			fmt.Fprintf(out, "Key: %s\n", result.Key)
			fmt.Fprintf(out, "Status: %d\n", result.Status)
			if result.Location != "" {
				fmt.Fprintf(out, "Location: %s\n", result.Location)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&mimeType, "type", "", "override the detected MIME type")

	return cmd
}

// NewSignCommand requests an upload policy without uploading anything
func NewSignCommand() *cobra.Command {
	var flags clientFlags

	cmd := &cobra.Command{
		Use:   "sign <filename> <mimetype>",
		Short: "Request a signed upload policy and print it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			policy, err := cfg.BuildFetcher().RequestPolicy(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("signature request failed (%s): %w", directupload.Kind(err), err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(policy)
		},
	}

	flags.register(cmd)

	return cmd
}
