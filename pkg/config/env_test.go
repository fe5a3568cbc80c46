package config

import (
	"testing"
	"time"
)

func TestClientEnv(t *testing.T) {
	t.Setenv("UPLOAD_SERVER_URL", "http://signer.internal:9000")
	t.Setenv("UPLOAD_SIGNATURE_PATH", "/v2/signatures")
	t.Setenv("UPLOAD_TIMEOUT", "90s")

	cfg, err := LoadClient(WithClientEnv())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerURL != "http://signer.internal:9000" {
		t.Errorf("expected server URL from env, got %q", cfg.ServerURL)
	}
	if cfg.SignaturePath != "/v2/signatures" {
		t.Errorf("expected signature path from env, got %q", cfg.SignaturePath)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("expected timeout 90s, got %v", cfg.Timeout)
	}
	if cfg.UploadURL() != "http://signer.internal:9000/upload" {
		t.Errorf("unexpected upload URL %q", cfg.UploadURL())
	}
}

func TestClientEnv_FlagsOverride(t *testing.T) {
	t.Setenv("UPLOAD_SERVER_URL", "http://from-env:8080")

	cfg, err := LoadClient(WithClientEnv(), WithServerURL("http://from-flag:8080"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerURL != "http://from-flag:8080" {
		t.Errorf("expected flag to win, got %q", cfg.ServerURL)
	}
}

func TestServerEnv(t *testing.T) {
	t.Setenv("UPLOAD_SECRET_KEY", "env-secret")
	t.Setenv("UPLOAD_SUCCESS_STATUS", "204")
	t.Setenv("UPLOAD_POLICY_TTL", "15m")
	t.Setenv("STORAGE_URL", "s3://env-bucket?region=eu-central-1")
	t.Setenv("AWS_S3_ENDPOINT", "http://localhost:9000")

	cfg, err := LoadServer(WithServerEnv())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SecretKey != "env-secret" {
		t.Errorf("expected secret from env, got %q", cfg.SecretKey)
	}
	if cfg.SuccessStatus != 204 {
		t.Errorf("expected success status 204, got %d", cfg.SuccessStatus)
	}
	if cfg.PolicyTTL != 15*time.Minute {
		t.Errorf("expected policy TTL 15m, got %v", cfg.PolicyTTL)
	}
	if cfg.S3.Endpoint != "http://localhost:9000" {
		t.Errorf("expected S3 endpoint from env, got %q", cfg.S3.Endpoint)
	}

	target, err := ParseStorageURL(cfg.StorageURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Type != "s3" || target.Bucket != "env-bucket" || target.Region != "eu-central-1" {
		t.Errorf("unexpected storage target %+v", target)
	}
}

func TestServerEnv_Invalid(t *testing.T) {
	t.Setenv("UPLOAD_SECRET_KEY", "env-secret")
	t.Setenv("STORAGE_URL", "ftp://example.com")

	if _, err := LoadServer(WithServerEnv()); err == nil {
		t.Error("expected error, got nil")
	}
}
