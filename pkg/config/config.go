package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/direct-upload/pkg/directupload"
	"github.com/tendant/direct-upload/pkg/objectkey"
	"github.com/tendant/direct-upload/pkg/signing"
	"github.com/tendant/direct-upload/pkg/storage"
	fsstorage "github.com/tendant/direct-upload/pkg/storage/fs"
	memorystorage "github.com/tendant/direct-upload/pkg/storage/memory"
	s3storage "github.com/tendant/direct-upload/pkg/storage/s3"
)

// ClientConfig configures the upload client
type ClientConfig struct {
	ServerURL     string        `env:"UPLOAD_SERVER_URL" env-default:"http://localhost:8080"`
	SignaturePath string        `env:"UPLOAD_SIGNATURE_PATH" env-default:"/api/upload_signatures"`
	StorageURL    string        `env:"UPLOAD_STORAGE_URL"` // defaults to {ServerURL}/upload
	Timeout       time.Duration `env:"UPLOAD_TIMEOUT" env-default:"30m"`
	JSONBody      bool          `env:"UPLOAD_JSON_BODY" env-default:"false"`
}

// ClientOption applies configuration to a ClientConfig instance.
type ClientOption func(*ClientConfig) error

// LoadClient constructs a ClientConfig by applying the supplied options on top of defaults.
func LoadClient(opts ...ClientOption) (*ClientConfig, error) {
	cfg := ClientConfig{
		ServerURL:     "http://localhost:8080",
		SignaturePath: directupload.DefaultSignaturePath,
		Timeout:       30 * time.Minute,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the client configuration
func (c *ClientConfig) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}
	if err := validateHTTPURL("server_url", c.ServerURL); err != nil {
		return err
	}
	if c.StorageURL != "" {
		if err := validateHTTPURL("storage_url", c.StorageURL); err != nil {
			return err
		}
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

// UploadURL returns the storage endpoint the form is posted to
func (c *ClientConfig) UploadURL() string {
	if c.StorageURL != "" {
		return c.StorageURL
	}
	return strings.TrimRight(c.ServerURL, "/") + "/upload"
}

// BuildFetcher creates the policy fetcher described by the configuration
func (c *ClientConfig) BuildFetcher() *directupload.HTTPPolicyFetcher {
	opts := []directupload.FetcherOption{
		directupload.WithSignaturePath(c.SignaturePath),
	}
	if c.JSONBody {
		opts = append(opts, directupload.WithJSONBody())
	}
	return directupload.NewHTTPPolicyFetcher(c.ServerURL, opts...)
}

// BuildOrchestrator creates an orchestrator wired to the configured endpoints
func (c *ClientConfig) BuildOrchestrator(opts ...directupload.Option) (*directupload.Orchestrator, error) {
	storageClient := directupload.NewFormStorageClient(
		directupload.WithStorageHTTPClient(&http.Client{Timeout: c.Timeout}),
	)
	all := append([]directupload.Option{directupload.WithStorageClient(storageClient)}, opts...)
	return directupload.New(c.UploadURL(), c.BuildFetcher(), all...)
}

// ServerConfig configures the local signing and upload server.
// Listen address is owned by the chi-demo app.
type ServerConfig struct {
	SecretKey      string        `env:"UPLOAD_SECRET_KEY"`
	AccessKeyID    string        `env:"UPLOAD_ACCESS_KEY_ID" env-default:"AKIDLOCAL"`
	Bucket         string        `env:"UPLOAD_BUCKET" env-default:"uploads"`
	ACL            string        `env:"UPLOAD_ACL" env-default:"private"`
	SuccessStatus  int           `env:"UPLOAD_SUCCESS_STATUS" env-default:"201"`
	PolicyTTL      time.Duration `env:"UPLOAD_POLICY_TTL" env-default:"1h"`
	KeyPrefix      string        `env:"UPLOAD_KEY_PREFIX" env-default:"uploads"`
	KeyLayout      string        `env:"UPLOAD_KEY_LAYOUT" env-default:"prefix"` // prefix, git
	MaxUploadBytes int64         `env:"UPLOAD_MAX_BYTES" env-default:"104857600"`

	// StorageURL selects the blob store: memory://, file:///path, s3://bucket
	StorageURL string `env:"STORAGE_URL" env-default:"memory://"`
	S3         S3Config
}

// S3Config carries credentials and options for s3:// storage URLs
type S3Config struct {
	Region                 string `env:"AWS_REGION" env-default:"us-east-1"`
	AccessKeyID            string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey        string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint               string `env:"AWS_S3_ENDPOINT"`
	UsePathStyle           bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	EnableSSE              bool   `env:"AWS_S3_ENABLE_SSE" env-default:"false"`
	SSEAlgorithm           string `env:"AWS_S3_SSE_ALGORITHM" env-default:"AES256"`
	SSEKMSKeyID            string `env:"AWS_S3_SSE_KMS_KEY_ID"`
	CreateBucketIfNotExist bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

// ServerOption applies configuration to a ServerConfig instance.
type ServerOption func(*ServerConfig) error

// LoadServer constructs a ServerConfig by applying the supplied options on top of defaults.
func LoadServer(opts ...ServerOption) (*ServerConfig, error) {
	cfg := serverDefaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func serverDefaults() ServerConfig {
	return ServerConfig{
		AccessKeyID:    "AKIDLOCAL",
		Bucket:         "uploads",
		ACL:            "private",
		SuccessStatus:  201,
		PolicyTTL:      time.Hour,
		KeyPrefix:      "uploads",
		KeyLayout:      "prefix",
		MaxUploadBytes: 100 << 20,
		StorageURL:     "memory://",
		S3: S3Config{
			Region:       "us-east-1",
			SSEAlgorithm: "AES256",
		},
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.SecretKey == "" {
		return errors.New("secret_key is required")
	}
	if c.AccessKeyID == "" {
		return errors.New("access_key_id is required")
	}
	switch c.SuccessStatus {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
	default:
		return fmt.Errorf("success_status must be 200, 201 or 204, got %d", c.SuccessStatus)
	}
	if c.PolicyTTL <= 0 {
		return errors.New("policy_ttl must be positive")
	}
	if c.KeyLayout != "prefix" && c.KeyLayout != "git" {
		return fmt.Errorf("key_layout must be 'prefix' or 'git', got %q", c.KeyLayout)
	}
	if _, err := ParseStorageURL(c.StorageURL); err != nil {
		return err
	}
	return nil
}

// KeyGenerator returns the object key strategy selected by KeyLayout
func (c *ServerConfig) KeyGenerator() objectkey.Generator {
	if c.KeyLayout == "git" {
		return objectkey.NewGitLikeGenerator(c.KeyPrefix)
	}
	return objectkey.NewPrefixGenerator(c.KeyPrefix)
}

// BuildSigner creates the policy signer described by the configuration
func (c *ServerConfig) BuildSigner() *signing.Signer {
	return signing.New(
		signing.WithSecretKey(c.SecretKey),
		signing.WithAccessKeyID(c.AccessKeyID),
		signing.WithBucket(c.Bucket),
		signing.WithACL(c.ACL),
		signing.WithSuccessStatus(c.SuccessStatus),
		signing.WithDefaultExpiration(c.PolicyTTL),
		signing.WithKeyGenerator(c.KeyGenerator()),
	)
}

// StorageTarget is a parsed STORAGE_URL
type StorageTarget struct {
	Type     string // "memory", "fs", "s3"
	BaseDir  string
	Bucket   string
	Region   string
	Endpoint string
}

// ParseStorageURL parses memory://, file:///path and s3://bucket?region=..&endpoint=.. URLs
func ParseStorageURL(raw string) (*StorageTarget, error) {
	if raw == "" || raw == "memory" || raw == "memory://" {
		return &StorageTarget{Type: "memory"}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid STORAGE_URL: %w", err)
	}

	switch u.Scheme {
	case "file":
		path := u.Host + u.Path
		if path == "" {
			return nil, errors.New("filesystem path cannot be empty in STORAGE_URL")
		}
		return &StorageTarget{Type: "fs", BaseDir: path}, nil
	case "s3":
		if u.Host == "" {
			return nil, errors.New("S3 bucket name cannot be empty in STORAGE_URL")
		}
		q := u.Query()
		return &StorageTarget{
			Type:     "s3",
			Bucket:   u.Host,
			Region:   q.Get("region"),
			Endpoint: q.Get("endpoint"),
		}, nil
	}

	return nil, fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", raw)
}

// BuildBlobStore creates the BlobStore selected by StorageURL
func (c *ServerConfig) BuildBlobStore() (storage.BlobStore, error) {
	target, err := ParseStorageURL(c.StorageURL)
	if err != nil {
		return nil, err
	}

	switch target.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{BaseDir: target.BaseDir})

	case "s3":
		s3Config := s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 target.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			EnableSSE:              c.S3.EnableSSE,
			SSEAlgorithm:           c.S3.SSEAlgorithm,
			SSEKMSKeyID:            c.S3.SSEKMSKeyID,
			CreateBucketIfNotExist: c.S3.CreateBucketIfNotExist,
		}
		if target.Region != "" {
			s3Config.Region = target.Region
		}
		if target.Endpoint != "" {
			s3Config.Endpoint = target.Endpoint
			s3Config.UsePathStyle = true
		}
		return s3storage.New(s3Config)

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", target.Type)
	}
}

func validateHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
