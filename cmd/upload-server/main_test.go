package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/direct-upload/pkg/config"
	"github.com/tendant/direct-upload/pkg/directupload"
	"github.com/tendant/direct-upload/pkg/storage/memory"
)

func TestMountUploadRoutes(t *testing.T) {
	cfg, err := config.LoadServer(
		config.WithSecretKey("server-test-secret"),
		func(c *config.ServerConfig) error {
			c.SuccessStatus = 204
			c.KeyLayout = "git"
			return nil
		},
	)
	require.NoError(t, err)

	store := memory.New()
	r := chi.NewRouter()
	mountUploadRoutes(r, cfg, store)

	server := httptest.NewServer(r)
	defer server.Close()

	client, err := config.LoadClient(config.WithServerURL(server.URL))
	require.NoError(t, err)
	orch, err := client.BuildOrchestrator()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	file := directupload.NewSelectedFile("report.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	resp, err := orch.Upload(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	keys := store.Keys()
	require.Len(t, keys, 1)
	assert.Regexp(t, `^uploads/objects/[0-9a-f]{2}/[0-9a-f]{30}_report\.pdf$`, keys[0])
}

