package directupload

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// SelectedFile is the one file chosen for an upload attempt
type SelectedFile struct {
	Name     string
	MimeType string
	Size     int64 // -1 when unknown

	content io.Reader
}

// NewSelectedFile wraps an in-memory or streamed file for upload
func NewSelectedFile(name, mimeType string, content io.Reader) *SelectedFile {
	size := int64(-1)
	switch r := content.(type) {
	case *bytes.Reader:
		size = int64(r.Len())
	case *strings.Reader:
		size = int64(r.Len())
	case *bytes.Buffer:
		size = int64(r.Len())
	}
	return &SelectedFile{
		Name:     name,
		MimeType: mimeType,
		Size:     size,
		content:  content,
	}
}

// OpenFile opens a local file for upload. The MIME type is taken from the
// extension and falls back to content sniffing.
// The caller must Close the returned file once the attempt resolves.
func OpenFile(path string) (*SelectedFile, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s is a directory", ErrInvalidFile, path)
	}

	mimeType, err := detectMimeType(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return &SelectedFile{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Size:     info.Size(),
		content:  f,
	}, f, nil
}

func detectMimeType(f *os.File) (string, error) {
	if byExt := extensionMime(f.Name()); byExt != "" {
		return byExt, nil
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to detect mime type: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to seek file: %w", err)
	}
	// Drop parameters such as "; charset=utf-8"; policies are scoped to the bare type.
	base, _, _ := strings.Cut(mt.String(), ";")
	return base, nil
}

// extensionMime returns the registered MIME type for the file extension, or ""
func extensionMime(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(mime.TypeByExtension(strings.ToLower(ext)))
	if err != nil {
		return ""
	}
	return mediaType
}

// Content returns the byte stream of the file
func (f *SelectedFile) Content() io.Reader {
	return f.content
}

func (f *SelectedFile) validate() error {
	if f == nil {
		return fmt.Errorf("%w: no file selected", ErrInvalidFile)
	}
	if f.Name == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidFile)
	}
	if f.MimeType == "" {
		return fmt.Errorf("%w: mime type is required", ErrInvalidFile)
	}
	if f.content == nil {
		return fmt.Errorf("%w: file has no content", ErrInvalidFile)
	}
	return nil
}

// UploadPolicy is the authorization bundle returned by the signature endpoint.
// Field tags are the wire names used both in the JSON response and in the
// storage form.
type UploadPolicy struct {
	ObjectKey           string `json:"key"`
	AccessKeyID         string `json:"AWSAccessKeyId"`
	ACL                 string `json:"acl"`
	SuccessActionStatus string `json:"success_action_status"`
	PolicyDocument      string `json:"policy"`
	Signature           string `json:"signature"`
	ContentType         string `json:"Content-Type"`
}

// Wire names of the policy fields, in submission order
const (
	FieldKey                 = "key"
	FieldAccessKeyID         = "AWSAccessKeyId"
	FieldACL                 = "acl"
	FieldSuccessActionStatus = "success_action_status"
	FieldPolicy              = "policy"
	FieldSignature           = "signature"
	FieldContentType         = "Content-Type"

	// FieldFile is the form field carrying the file bytes; it is always last.
	FieldFile = "file"
)

// PolicyFields lists the fields copied from an UploadPolicy into a submission
var PolicyFields = []string{
	FieldKey,
	FieldAccessKeyID,
	FieldACL,
	FieldSuccessActionStatus,
	FieldPolicy,
	FieldSignature,
	FieldContentType,
}

// Get returns the value of a policy field by its wire name
func (p *UploadPolicy) Get(field string) string {
	switch field {
	case FieldKey:
		return p.ObjectKey
	case FieldAccessKeyID:
		return p.AccessKeyID
	case FieldACL:
		return p.ACL
	case FieldSuccessActionStatus:
		return p.SuccessActionStatus
	case FieldPolicy:
		return p.PolicyDocument
	case FieldSignature:
		return p.Signature
	case FieldContentType:
		return p.ContentType
	}
	return ""
}

// Validate reports every required field that is empty
func (p *UploadPolicy) Validate() error {
	if p == nil {
		return &MalformedPolicyError{Missing: PolicyFields}
	}
	var missing []string
	for _, field := range PolicyFields {
		if p.Get(field) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &MalformedPolicyError{Missing: missing}
	}
	return nil
}

// matches checks that the policy was issued for the given file
func (p *UploadPolicy) matches(file *SelectedFile) error {
	if !strings.EqualFold(p.ContentType, file.MimeType) {
		return &MalformedPolicyError{
			Reason: fmt.Sprintf("policy content type %q does not match file type %q", p.ContentType, file.MimeType),
		}
	}
	return nil
}

// StorageResponse is what the storage collaborator answered to a successful post
type StorageResponse struct {
	StatusCode int
	Location   string
	Bucket     string
	Key        string
	ETag       string
	Body       []byte
}
