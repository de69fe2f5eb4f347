package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyforge-project/keyforge/client"
)

func TestKeyFetcherMergesAttributesWithoutOverwriting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req keyInfoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "release-key", req.KeyName)
		_ = json.NewEncoder(w).Encode(keyInfoResponse{Attributes: map[string]string{
			"digest_algorithm": "sha2_256",
			"detached":         "false",
		}})
	}))
	defer server.Close()

	fetcher := NewKeyFetcher(server.URL, nil)
	item := client.New(client.FileTypeRPM, "pkg.rpm", client.KeyTypePGP, "release-key", map[string]string{"detached": "true"})

	require.NoError(t, fetcher.Fetch(context.Background(), item))

	assert.Equal(t, "sha2_256", item.SignOptions["digest_algorithm"])
	assert.Equal(t, "true", item.SignOptions["detached"])
}

func TestKeyFetcherReturnsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(keyInfoResponse{Error: "key not found: missing"})
	}))
	defer server.Close()

	fetcher := NewKeyFetcher(server.URL, nil)
	item := client.New(client.FileTypeRPM, "pkg.rpm", client.KeyTypePGP, "missing", nil)

	err := fetcher.Fetch(context.Background(), item)
	assert.Error(t, err)
}
