package directupload_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/direct-upload/pkg/directupload"
)

func TestHTTPPolicyFetcher_RequestPolicy(t *testing.T) {
	var gotFilename, gotMime, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/upload_signatures", r.URL.Path)
		gotContentType = r.Header.Get("Content-Type")
		r.ParseForm()
		gotFilename = r.PostForm.Get("filename")
		gotMime = r.PostForm.Get("mimetype")
		json.NewEncoder(w).Encode(testPolicy("uploads/abc/cat.png", "image/png"))
	}))
	defer server.Close()

	fetcher := directupload.NewHTTPPolicyFetcher(server.URL + "/")
	policy, err := fetcher.RequestPolicy(context.Background(), "cat.png", "image/png")
	require.NoError(t, err)

	assert.Equal(t, "cat.png", gotFilename)
	assert.Equal(t, "image/png", gotMime)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)

	assert.Equal(t, &directupload.UploadPolicy{
		ObjectKey:           "uploads/abc/cat.png",
		AccessKeyID:         "AKIDEXAMPLE",
		ACL:                 "public-read",
		SuccessActionStatus: "201",
		PolicyDocument:      "eyJleHBpcmF0aW9uIjoiMjAzMC0wMS0wMVQwMDowMDowMFoifQ==",
		Signature:           "c2lnbmF0dXJl",
		ContentType:         "image/png",
	}, policy)
}

func TestHTTPPolicyFetcher_JSONBody(t *testing.T) {
	var body map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(testPolicy("k", "text/plain"))
	}))
	defer server.Close()

	fetcher := directupload.NewHTTPPolicyFetcher(server.URL,
		directupload.WithJSONBody(),
		directupload.WithSignaturePath("/v2/signatures"))
	assert.Equal(t, server.URL+"/v2/signatures", fetcher.Endpoint())

	_, err := fetcher.RequestPolicy(context.Background(), "notes.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"filename": "notes.txt", "mimetype": "text/plain"}, body)
}

func TestHTTPPolicyFetcher_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		remove  []string
		missing []string
	}{
		{"signature", []string{"signature"}, []string{"signature"}},
		{"key and policy", []string{"policy", "key"}, []string{"key", "policy"}},
		{"content type", []string{"Content-Type"}, []string{"Content-Type"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				p := testPolicy("k", "image/png")
				for _, f := range tt.remove {
					delete(p, f)
				}
				json.NewEncoder(w).Encode(p)
			}))
			defer server.Close()

			policy, err := directupload.NewHTTPPolicyFetcher(server.URL).
				RequestPolicy(context.Background(), "cat.png", "image/png")
			assert.Nil(t, policy)

			var mp *directupload.MalformedPolicyError
			require.True(t, errors.As(err, &mp))
			assert.Equal(t, tt.missing, mp.Missing)
			assert.Equal(t, directupload.KindMalformedPolicy, directupload.Kind(err))
		})
	}
}

func TestHTTPPolicyFetcher_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>oops</html>"))
	}))
	defer server.Close()

	_, err := directupload.NewHTTPPolicyFetcher(server.URL).
		RequestPolicy(context.Background(), "cat.png", "image/png")
	assert.ErrorIs(t, err, directupload.ErrMalformedPolicy)
}

func TestHTTPPolicyFetcher_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "signing unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := directupload.NewHTTPPolicyFetcher(server.URL).
		RequestPolicy(context.Background(), "cat.png", "image/png")

	var te *directupload.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Contains(t, te.Error(), "signing unavailable")
	assert.ErrorIs(t, err, directupload.ErrTransport)
}

func TestHTTPPolicyFetcher_RejectsEmptyInput(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	fetcher := directupload.NewHTTPPolicyFetcher(server.URL)

	_, err := fetcher.RequestPolicy(context.Background(), "", "image/png")
	assert.ErrorIs(t, err, directupload.ErrInvalidFile)

	_, err = fetcher.RequestPolicy(context.Background(), "cat.png", "")
	assert.ErrorIs(t, err, directupload.ErrInvalidFile)

	assert.Zero(t, calls)
}
