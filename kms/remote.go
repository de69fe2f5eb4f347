package kms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteConfig configures a RemoteAdapter backed by an HTTP KMS endpoint.
type RemoteConfig struct {
	Endpoint string
	KeyID    string
	Token    string
	Timeout  time.Duration
}

// RemoteAdapter calls out to an HTTP KMS endpoint to wrap/unwrap cluster
// key material. It speaks a small encode/decode JSON contract: POST
// {key_id, cipher_text | plain_text} to Endpoint+"/encode" or
// Endpoint+"/decode" and expects {"result": "<hex>"} back.
type RemoteAdapter struct {
	cfg    RemoteConfig
	client *http.Client
}

func NewRemoteAdapter(cfg RemoteConfig) *RemoteAdapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type remoteRequest struct {
	KeyID   string `json:"key_id"`
	Content string `json:"content"`
}

type remoteResponse struct {
	Result string `json:"result"`
}

func (r *RemoteAdapter) Encode(ctx context.Context, content string) (string, error) {
	return r.invoke(ctx, "encode", content)
}

func (r *RemoteAdapter) Decode(ctx context.Context, content string) (string, error) {
	return r.invoke(ctx, "decode", content)
}

func (r *RemoteAdapter) invoke(ctx context.Context, op, content string) (string, error) {
	body, err := json.Marshal(remoteRequest{KeyID: r.cfg.KeyID, Content: content})
	if err != nil {
		return "", &InvokeError{Op: op, Err: err}
	}

	url := fmt.Sprintf("%s/%s", r.cfg.Endpoint, op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &InvokeError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.Token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &InvokeError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &InvokeError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &InvokeError{Op: op, Err: err}
	}
	return out.Result, nil
}
