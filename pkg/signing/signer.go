package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/direct-upload/pkg/directupload"
	"github.com/tendant/direct-upload/pkg/objectkey"
)

// Signer issues and validates HMAC-signed upload policies
type Signer struct {
	secretKey         []byte
	accessKeyID       string
	bucket            string
	acl               string
	successStatus     int
	defaultExpiration time.Duration
	keyGenerator      objectkey.Generator
	now               func() time.Time
}

// New creates a new Signer with the given options
func New(opts ...Option) *Signer {
	s := &Signer{
		acl:               "private",
		successStatus:     201,
		defaultExpiration: 1 * time.Hour,
		keyGenerator:      objectkey.Default(),
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// PolicyDocument is the decoded form of the policy field
type PolicyDocument struct {
	Expiration string              `json:"expiration"`
	Conditions []map[string]string `json:"conditions"`
}

// Condition returns the value a condition pins for field, if any
func (d *PolicyDocument) Condition(field string) (string, bool) {
	for _, c := range d.Conditions {
		if v, ok := c[field]; ok {
			return v, true
		}
	}
	return "", false
}

// IsEnabled returns true if a secret key is set
func (s *Signer) IsEnabled() bool {
	return len(s.secretKey) > 0
}

// Bucket returns the bucket named in issued policies
func (s *Signer) Bucket() string {
	return s.bucket
}

// Sign issues a policy for uploading one file with the given name and MIME type
func (s *Signer) Sign(filename, mimeType string) (*directupload.UploadPolicy, error) {
	if len(s.secretKey) == 0 {
		return nil, ErrNoSecretKey
	}
	if filename == "" {
		return nil, fmt.Errorf("%w: filename", ErrMissingField)
	}
	if mimeType == "" {
		return nil, fmt.Errorf("%w: mimetype", ErrMissingField)
	}

	key := s.keyGenerator.GenerateKey(uuid.New(), &objectkey.KeyMetadata{
		FileName:    filename,
		ContentType: mimeType,
	})
	status := strconv.Itoa(s.successStatus)

	doc := PolicyDocument{
		Expiration: s.now().Add(s.defaultExpiration).UTC().Format(time.RFC3339),
		Conditions: []map[string]string{
			{"bucket": s.bucket},
			{directupload.FieldKey: key},
			{directupload.FieldACL: s.acl},
			{directupload.FieldSuccessActionStatus: status},
			{directupload.FieldContentType: mimeType},
		},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy document: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	return &directupload.UploadPolicy{
		ObjectKey:           key,
		AccessKeyID:         s.accessKeyID,
		ACL:                 s.acl,
		SuccessActionStatus: status,
		PolicyDocument:      encoded,
		Signature:           s.generateSignature(encoded),
		ContentType:         mimeType,
	}, nil
}

// DecodePolicy decodes a base64 policy document
func DecodePolicy(encoded string) (*PolicyDocument, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPolicy, err)
	}
	var doc PolicyDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPolicy, err)
	}
	return &doc, nil
}

// ValidateForm checks the non-file fields of an upload form against the
// signed policy they carry
func (s *Signer) ValidateForm(fields map[string]string) error {
	if len(s.secretKey) == 0 {
		return ErrNoSecretKey
	}

	for _, name := range []string{
		directupload.FieldKey,
		directupload.FieldAccessKeyID,
		directupload.FieldPolicy,
		directupload.FieldSignature,
	} {
		if fields[name] == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}

	if fields[directupload.FieldAccessKeyID] != s.accessKeyID {
		return ErrInvalidAccessKey
	}

	expected := s.generateSignature(fields[directupload.FieldPolicy])
	if !hmac.Equal([]byte(fields[directupload.FieldSignature]), []byte(expected)) {
		return ErrInvalidSignature
	}

	doc, err := DecodePolicy(fields[directupload.FieldPolicy])
	if err != nil {
		return err
	}

	expiresAt, err := time.Parse(time.RFC3339, doc.Expiration)
	if err != nil {
		return fmt.Errorf("%w: expiration: %v", ErrMalformedPolicy, err)
	}
	if s.now().After(expiresAt) {
		return ErrExpired
	}

	for _, c := range doc.Conditions {
		for field, want := range c {
			if field == "bucket" {
				if want != s.bucket {
					return fmt.Errorf("%w: bucket", ErrConditionMismatch)
				}
				continue
			}
			got := fields[field]
			if field == directupload.FieldContentType {
				if !strings.EqualFold(got, want) {
					return fmt.Errorf("%w: %s", ErrConditionMismatch, field)
				}
				continue
			}
			if got != want {
				return fmt.Errorf("%w: %s", ErrConditionMismatch, field)
			}
		}
	}

	return nil
}

// generateSignature generates HMAC-SHA256 signature for the given payload
func (s *Signer) generateSignature(payload string) string {
	h := hmac.New(sha256.New, s.secretKey)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}
