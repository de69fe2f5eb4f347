package pipeline

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/keyforge-project/keyforge/client"
)

// defaultBufferSize bounds how much content a single chunk carries
// over the wire, matching the streaming client's segment size so a
// large file is uploaded incrementally rather than in one frame.
const defaultBufferSize = 1 << 20

// wireChunk/wireResponse mirror dataplane's signChunk/signStreamResponse
// wire shapes. They are redeclared here rather than imported so the
// client binary never links the server's storage and auth packages.
type wireChunk struct {
	Data    []byte            `json:"data"`
	KeyName string            `json:"key_name"`
	KeyType string            `json:"key_type"`
	Options map[string]string `json:"options"`
	Token   *string           `json:"token,omitempty"`
	Last    bool              `json:"last"`
}

type wireResponse struct {
	Signature []byte `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RemoteSigner implements pipeline.Signer by streaming content to the
// server's sign-stream endpoint in fixed-size chunks and returning the
// signature computed once the server sees the final chunk.
type RemoteSigner struct {
	URL        string
	Token      *string
	BufferSize int
	Dialer     *websocket.Dialer
}

func NewRemoteSigner(url string, token *string) *RemoteSigner {
	return &RemoteSigner{URL: url, Token: token, BufferSize: defaultBufferSize, Dialer: websocket.DefaultDialer}
}

func (s *RemoteSigner) bufferSize() int {
	if s.BufferSize <= 0 {
		return defaultBufferSize
	}
	return s.BufferSize
}

// Sign uploads content in bufferSize segments, each carrying the same
// key metadata, and reads back one response once the server has
// consumed the final chunk.
func (s *RemoteSigner) Sign(ctx context.Context, keyType client.KeyType, keyID string, content []byte, options map[string]string) ([]byte, error) {
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("remotesigner: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	size := s.bufferSize()
	if len(content) == 0 {
		if err := conn.WriteJSON(wireChunk{KeyName: keyID, KeyType: string(keyType), Options: options, Token: s.Token, Last: true}); err != nil {
			return nil, fmt.Errorf("remotesigner: write: %w", err)
		}
	}
	for offset := 0; offset < len(content); offset += size {
		end := offset + size
		if end > len(content) {
			end = len(content)
		}
		chunk := wireChunk{
			Data:    content[offset:end],
			KeyName: keyID,
			KeyType: string(keyType),
			Options: options,
			Token:   s.Token,
			Last:    end == len(content),
		}
		if err := conn.WriteJSON(chunk); err != nil {
			return nil, fmt.Errorf("remotesigner: write chunk: %w", err)
		}
	}

	var resp wireResponse
	if err := conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("remotesigner: read response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("remotesigner: %s", resp.Error)
	}
	return resp.Signature, nil
}
