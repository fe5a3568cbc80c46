package directupload

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// StorageClient posts a submission and the file bytes to object storage.
// It returns an error only when no response was received; status checking
// belongs to the caller.
type StorageClient interface {
	Post(ctx context.Context, uploadURL string, sub *Submission, file *SelectedFile) (*StorageResponse, error)
}

// FormStorageClient sends the submission as a multipart/form-data POST
type FormStorageClient struct {
	httpClient   *http.Client
	maxBodyBytes int64
}

// StorageClientOption is a functional option for configuring a FormStorageClient
type StorageClientOption func(*FormStorageClient)

// NewFormStorageClient creates a storage client
func NewFormStorageClient(opts ...StorageClientOption) *FormStorageClient {
	c := &FormStorageClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Minute, // Long timeout for large uploads
		},
		maxBodyBytes: 64 * 1024,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithStorageHTTPClient sets a custom HTTP client
func WithStorageHTTPClient(client *http.Client) StorageClientOption {
	return func(c *FormStorageClient) {
		c.httpClient = client
	}
}

// Post streams the multipart form to uploadURL
func (c *FormStorageClient) Post(ctx context.Context, uploadURL string, sub *Submission, file *SelectedFile) (*StorageResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(sub.WriteTo(mw, file))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return nil, &TransportError{Op: "upload", URL: uploadURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Op: "upload", URL: uploadURL, StatusCode: resp.StatusCode, Err: err}
	}

	sr := &StorageResponse{
		StatusCode: resp.StatusCode,
		Location:   resp.Header.Get("Location"),
		ETag:       resp.Header.Get("ETag"),
		Body:       body,
	}
	if post := parsePostResponse(body); post != nil {
		if post.Location != "" {
			sr.Location = post.Location
		}
		if post.ETag != "" {
			sr.ETag = post.ETag
		}
		sr.Bucket = post.Bucket
		sr.Key = post.Key
	}
	return sr, nil
}

// PostResponse is the XML document S3 returns for success_action_status 201
type PostResponse struct {
	XMLName  xml.Name `xml:"PostResponse"`
	Location string   `xml:"Location"`
	Bucket   string   `xml:"Bucket"`
	Key      string   `xml:"Key"`
	ETag     string   `xml:"ETag"`
}

// StorageErrorResponse is the XML error document returned by S3-compatible storage
type StorageErrorResponse struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	RequestID string   `xml:"RequestId,omitempty"`
}

func parsePostResponse(body []byte) *PostResponse {
	if !bytes.Contains(body, []byte("<PostResponse")) {
		return nil
	}
	var pr PostResponse
	if err := xml.Unmarshal(body, &pr); err != nil {
		return nil
	}
	return &pr
}

func parseStorageError(body []byte) *StorageErrorResponse {
	if !bytes.Contains(body, []byte("<Error")) {
		return nil
	}
	var e StorageErrorResponse
	if err := xml.Unmarshal(body, &e); err != nil {
		return nil
	}
	return &e
}
