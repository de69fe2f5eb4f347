package dataplane

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyforge-project/keyforge/internal/logger"
)

type fakeKeyService struct {
	attrs map[string]map[string]string
}

func (f *fakeKeyService) Attributes(_ context.Context, idOrName string) (map[string]string, error) {
	attrs, ok := f.attrs[idOrName]
	if !ok {
		return nil, assertNotFound(idOrName)
	}
	return attrs, nil
}

func (f *fakeKeyService) Sign(_ context.Context, idOrName string, content []byte, _ map[string]string) ([]byte, error) {
	if _, ok := f.attrs[idOrName]; !ok {
		return nil, assertNotFound(idOrName)
	}
	return append([]byte("sig:"), content...), nil
}

type assertNotFound string

func (e assertNotFound) Error() string { return "key not found: " + string(e) }

type allowAllValidator struct{}

func (allowAllValidator) ValidateTokenAndEmail(context.Context, string, string) (bool, error) {
	return true, nil
}

func testLog() logger.Logger {
	return logger.NewLogger(&bytes.Buffer{}, logger.ErrorLevel)
}

func TestKeyInfoHandlerPublicKey(t *testing.T) {
	keys := &fakeKeyService{attrs: map[string]map[string]string{
		"release-key": {"digest_algorithm": "sha2_256"},
	}}
	handler := NewKeyInfoHandler(keys, allowAllValidator{}, testLog())

	body, _ := json.Marshal(KeyInfoRequest{KeyName: "release-key"})
	req := httptest.NewRequest(http.MethodPost, "/key-info", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp KeyInfoResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Error)
	assert.Equal(t, "sha2_256", resp.Attributes["digest_algorithm"])
}

func TestKeyInfoHandlerUnknownKey(t *testing.T) {
	keys := &fakeKeyService{attrs: map[string]map[string]string{}}
	handler := NewKeyInfoHandler(keys, allowAllValidator{}, testLog())

	body, _ := json.Marshal(KeyInfoRequest{KeyName: "missing"})
	req := httptest.NewRequest(http.MethodPost, "/key-info", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp KeyInfoResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Error)
}

func TestKeyInfoHandlerRejectsNonPost(t *testing.T) {
	handler := NewKeyInfoHandler(&fakeKeyService{}, allowAllValidator{}, testLog())
	req := httptest.NewRequest(http.MethodGet, "/key-info", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSignStreamServerSignsAccumulatedChunks(t *testing.T) {
	keys := &fakeKeyService{attrs: map[string]map[string]string{
		"release-key": {},
	}}
	server := NewSignStreamServer(keys, allowAllValidator{}, testLog())
	httpServer := httptest.NewServer(server.Handler())
	defer httpServer.Close()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(signChunk{Data: []byte("hel"), KeyName: "release-key"}))
	require.NoError(t, conn.WriteJSON(signChunk{Data: []byte("lo"), KeyName: "release-key", Last: true}))

	var resp signStreamResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Empty(t, resp.Error)
	assert.Equal(t, "sig:hello", string(resp.Signature))
}

func TestSignStreamServerRejectsUnmatchedToken(t *testing.T) {
	keys := &fakeKeyService{attrs: map[string]map[string]string{"owner@example.com:release-key": {}}}
	server := NewSignStreamServer(keys, denyValidator{}, testLog())
	httpServer := httptest.NewServer(server.Handler())
	defer httpServer.Close()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(signChunk{Data: []byte("x"), KeyName: "owner@example.com:release-key", Last: true}))

	var resp signStreamResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.NotEmpty(t, resp.Error)
}

type denyValidator struct{}

func (denyValidator) ValidateTokenAndEmail(context.Context, string, string) (bool, error) {
	return false, nil
}
