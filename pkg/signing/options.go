package signing

import (
	"time"

	"github.com/tendant/direct-upload/pkg/objectkey"
)

// Option is a functional option for configuring a Signer
type Option func(*Signer)

// WithSecretKey sets the secret key used for HMAC signing
func WithSecretKey(key string) Option {
	return func(s *Signer) {
		s.secretKey = []byte(key)
	}
}

// WithAccessKeyID sets the access key identifier returned as AWSAccessKeyId
func WithAccessKeyID(id string) Option {
	return func(s *Signer) {
		s.accessKeyID = id
	}
}

// WithBucket sets the bucket named in policy conditions and upload responses
func WithBucket(bucket string) Option {
	return func(s *Signer) {
		s.bucket = bucket
	}
}

// WithACL sets the canned ACL issued with every policy. Default is "private"
func WithACL(acl string) Option {
	return func(s *Signer) {
		s.acl = acl
	}
}

// WithSuccessStatus sets success_action_status. Default is 201
func WithSuccessStatus(status int) Option {
	return func(s *Signer) {
		s.successStatus = status
	}
}

// WithDefaultExpiration sets how long issued policies stay valid. Default is 1 hour
func WithDefaultExpiration(duration time.Duration) Option {
	return func(s *Signer) {
		s.defaultExpiration = duration
	}
}

// WithKeyGenerator sets the object key strategy. Default is objectkey.Default()
func WithKeyGenerator(gen objectkey.Generator) Option {
	return func(s *Signer) {
		s.keyGenerator = gen
	}
}

// WithClock overrides time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		s.now = now
	}
}
