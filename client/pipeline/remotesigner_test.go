package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyforge-project/keyforge/client"
)

func echoConcatServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()

		var content []byte
		for {
			var chunk wireChunk
			if err := conn.ReadJSON(&chunk); err != nil {
				return
			}
			content = append(content, chunk.Data...)
			if chunk.Last {
				break
			}
		}
		_ = conn.WriteJSON(wireResponse{Signature: append([]byte("sig:"), content...)})
	}))
}

func TestRemoteSignerChunksAndConcatenates(t *testing.T) {
	server := echoConcatServer(t)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	signer := NewRemoteSigner(wsURL, nil)
	signer.BufferSize = 4

	sig, err := signer.Sign(context.Background(), client.KeyTypePGP, "release-key", []byte("hello world"), nil)
	require.NoError(t, err)
	assert.Equal(t, "sig:hello world", string(sig))
}

func TestRemoteSignerHandlesEmptyContent(t *testing.T) {
	server := echoConcatServer(t)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	signer := NewRemoteSigner(wsURL, nil)

	sig, err := signer.Sign(context.Background(), client.KeyTypeX509, "release-key", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "sig:", string(sig))
}

func TestRemoteSignerSurfacesServerError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()
		var chunk wireChunk
		require.NoError(t, conn.ReadJSON(&chunk))
		_ = conn.WriteJSON(wireResponse{Error: "key not found: release-key"})
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	signer := NewRemoteSigner(wsURL, nil)

	_, err := signer.Sign(context.Background(), client.KeyTypePGP, "release-key", []byte("x"), nil)
	assert.Error(t, err)
}
