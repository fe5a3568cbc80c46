// Package directupload uploads a single file straight to object storage
// using a signed POST policy minted by the application server.
//
// The application server only hands out the policy; the file bytes go from
// the client to the storage bucket.
//
// # Flow
//
//	fetcher := directupload.NewHTTPPolicyFetcher("https://app.example.com")
//	orch, err := directupload.New("https://bucket.s3.amazonaws.com/", fetcher,
//	    directupload.WithHooks(directupload.LoggingHooks(slog.Default())),
//	)
//	attempt := orch.Select(ctx, directupload.NewSelectedFile("cat.png", "image/png", r))
//	resp, err := attempt.Wait(ctx)
//
// An attempt moves Idle -> Signing -> Uploading -> Succeeded or Failed.
// Failures are classified with Kind: transport, malformed_policy or
// storage_rejected. A selection with no name, MIME type or content fails
// before any request is made and is classified as invalid_file; it still
// reaches the failure hooks like the other kinds. Selecting another file while an attempt is in flight
// makes the new attempt current; hooks of the superseded attempt are
// dropped, though its own Wait still returns its result.
package directupload
