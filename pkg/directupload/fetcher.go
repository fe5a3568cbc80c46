package directupload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultSignaturePath is where the application server mints upload policies
const DefaultSignaturePath = "/api/upload_signatures"

// PolicyFetcher obtains an upload policy for a filename and MIME type
type PolicyFetcher interface {
	RequestPolicy(ctx context.Context, filename, mimeType string) (*UploadPolicy, error)
}

// HTTPPolicyFetcher requests policies from the application server
type HTTPPolicyFetcher struct {
	baseURL    string
	path       string
	httpClient *http.Client
	jsonBody   bool
}

// FetcherOption is a functional option for configuring an HTTPPolicyFetcher
type FetcherOption func(*HTTPPolicyFetcher)

// NewHTTPPolicyFetcher creates a fetcher for the server at baseURL
func NewHTTPPolicyFetcher(baseURL string, opts ...FetcherOption) *HTTPPolicyFetcher {
	f := &HTTPPolicyFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    DefaultSignaturePath,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// WithFetcherHTTPClient sets a custom HTTP client
func WithFetcherHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPPolicyFetcher) {
		f.httpClient = client
	}
}

// WithSignaturePath overrides the signature endpoint path
func WithSignaturePath(path string) FetcherOption {
	return func(f *HTTPPolicyFetcher) {
		f.path = path
	}
}

// WithJSONBody sends the request as JSON instead of a urlencoded form
func WithJSONBody() FetcherOption {
	return func(f *HTTPPolicyFetcher) {
		f.jsonBody = true
	}
}

// Endpoint returns the full URL of the signature endpoint
func (f *HTTPPolicyFetcher) Endpoint() string {
	return f.baseURL + f.path
}

// RequestPolicy posts {filename, mimetype} to the signature endpoint and
// decodes the returned policy. The policy is returned only when every field
// is present.
func (f *HTTPPolicyFetcher) RequestPolicy(ctx context.Context, filename, mimeType string) (*UploadPolicy, error) {
	if filename == "" || mimeType == "" {
		return nil, fmt.Errorf("%w: filename and mime type are required", ErrInvalidFile)
	}

	endpoint := f.Endpoint()

	body, contentType, err := f.encodeRequest(filename, mimeType)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "request_policy", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &TransportError{
			Op:         "request_policy",
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(msg))),
		}
	}

	var policy UploadPolicy
	if err := json.NewDecoder(resp.Body).Decode(&policy); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &TransportError{Op: "request_policy", URL: endpoint, StatusCode: resp.StatusCode, Err: err}
		}
		return nil, &MalformedPolicyError{Reason: fmt.Sprintf("failed to decode response: %v", err)}
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return &policy, nil
}

func (f *HTTPPolicyFetcher) encodeRequest(filename, mimeType string) (io.Reader, string, error) {
	if f.jsonBody {
		payload, err := json.Marshal(map[string]string{
			"filename": filename,
			"mimetype": mimeType,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
		}
		return bytes.NewReader(payload), "application/json", nil
	}

	form := url.Values{}
	form.Set("filename", filename)
	form.Set("mimetype", mimeType)
	return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil
}

// PolicyFetcherFunc adapts a function to the PolicyFetcher interface
type PolicyFetcherFunc func(ctx context.Context, filename, mimeType string) (*UploadPolicy, error)

// RequestPolicy calls fn
func (fn PolicyFetcherFunc) RequestPolicy(ctx context.Context, filename, mimeType string) (*UploadPolicy, error) {
	return fn(ctx, filename, mimeType)
}
