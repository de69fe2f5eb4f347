package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/keyforge-project/keyforge/client"
)

// keyInfoRequest/keyInfoResponse mirror dataplane.KeyInfoRequest and
// dataplane.KeyInfoResponse on the wire without importing that
// package, which otherwise would pull the server's HTTP handler and
// storage dependencies into the client binary.
type keyInfoRequest struct {
	KeyName string  `json:"key_name"`
	Token   *string `json:"token,omitempty"`
}

type keyInfoResponse struct {
	Attributes map[string]string `json:"attributes"`
	Error      string            `json:"error,omitempty"`
}

// KeyFetcher retrieves a key's server-side attributes over HTTP and
// merges them into a SignIdentity's options before it is split and
// signed, the way the remote key's digest algorithm or detached-sign
// preference reaches the file handler.
type KeyFetcher struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      *string
}

func NewKeyFetcher(baseURL string, token *string) *KeyFetcher {
	return &KeyFetcher{BaseURL: baseURL, HTTPClient: http.DefaultClient, Token: token}
}

// Fetch merges the remote key's attributes into item.SignOptions,
// letting values already set on the identity take precedence.
func (f *KeyFetcher) Fetch(ctx context.Context, item *client.SignIdentity) error {
	body, err := json.Marshal(keyInfoRequest{KeyName: item.KeyID, Token: f.Token})
	if err != nil {
		return fmt.Errorf("keyfetcher: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.BaseURL+"/key-info", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("keyfetcher: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := f.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("keyfetcher: request key %s: %w", item.KeyID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var info keyInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("keyfetcher: decode response: %w", err)
	}
	if info.Error != "" {
		return fmt.Errorf("keyfetcher: %s", info.Error)
	}

	if item.SignOptions == nil {
		item.SignOptions = make(map[string]string, len(info.Attributes))
	}
	for k, v := range info.Attributes {
		if _, exists := item.SignOptions[k]; !exists {
			item.SignOptions[k] = v
		}
	}
	return nil
}
