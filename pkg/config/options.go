package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithClientEnv reads UPLOAD_* variables into the client configuration.
// Apply it before explicit options so flags win over the environment.
func WithClientEnv() ClientOption {
	return func(c *ClientConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read client environment: %w", err)
		}
		return nil
	}
}

// WithServerURL sets the application server hosting the signature endpoint
func WithServerURL(serverURL string) ClientOption {
	return func(c *ClientConfig) error {
		if serverURL != "" {
			c.ServerURL = serverURL
		}
		return nil
	}
}

// WithStorageURL sets the storage endpoint the form is posted to
func WithStorageURL(storageURL string) ClientOption {
	return func(c *ClientConfig) error {
		if storageURL != "" {
			c.StorageURL = storageURL
		}
		return nil
	}
}

// WithTimeout sets the overall upload timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) error {
		if timeout > 0 {
			c.Timeout = timeout
		}
		return nil
	}
}

// WithServerEnv reads server variables (UPLOAD_*, STORAGE_URL, AWS_*) into
// the server configuration.
func WithServerEnv() ServerOption {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read server environment: %w", err)
		}
		return nil
	}
}

// WithSecretKey sets the HMAC secret used to sign policies
func WithSecretKey(key string) ServerOption {
	return func(c *ServerConfig) error {
		c.SecretKey = key
		return nil
	}
}

// WithBlobStorageURL sets STORAGE_URL programmatically
func WithBlobStorageURL(storageURL string) ServerOption {
	return func(c *ServerConfig) error {
		c.StorageURL = storageURL
		return nil
	}
}
