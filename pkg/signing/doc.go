// Package signing is a development stand-in for the two collaborators an
// upload client talks to: the application endpoint that mints signed
// upload policies and the storage endpoint that accepts the multipart form.
//
// A Signer issues policies whose document is base64 JSON carrying an
// expiration and the conditions the form must meet, signed with
// HMAC-SHA256. Handlers exposes both endpoints on a chi router and writes
// accepted files into a storage.BlobStore.
//
// Example:
//
//	signer := signing.New(
//	    signing.WithSecretKey(secret),
//	    signing.WithAccessKeyID("AKIDLOCAL"),
//	    signing.WithBucket("uploads"),
//	)
//	h := signing.NewHandlers(signer, memory.New())
//	r := chi.NewRouter()
//	h.Mount(r)
package signing
