package dataplane

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/keyforge-project/keyforge/internal/logger"
)

// signChunk is one frame of a SignStream upload: the client sends one
// or more chunks carrying a slice of the content to sign, repeating
// key_name/key_type/options/token on every frame (only the last values
// are kept, matching the original streaming contract) and a final
// frame with Last set once all content has been sent.
type signChunk struct {
	Data    []byte            `json:"data"`
	KeyName string            `json:"key_name"`
	KeyType string            `json:"key_type"`
	Options map[string]string `json:"options"`
	Token   *string           `json:"token,omitempty"`
	Last    bool              `json:"last"`
}

type signStreamResponse struct {
	Signature []byte `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SignStreamServer upgrades HTTP connections to WebSocket and signs
// the accumulated content of each connection's chunk stream.
type SignStreamServer struct {
	keys      KeyService
	validator TokenValidator
	log       logger.Logger
	upgrader  websocket.Upgrader

	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewSignStreamServer(keys KeyService, validator TokenValidator, log logger.Logger) *SignStreamServer {
	return &SignStreamServer{
		keys:      keys,
		validator: validator,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		readTimeout:  60 * time.Second,
		writeTimeout: 30 * time.Second,
	}
}

func (s *SignStreamServer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, fmt.Sprintf("websocket upgrade failed: %v", err), http.StatusBadRequest)
			return
		}
		defer func() { _ = conn.Close() }()
		s.handleConnection(r.Context(), conn)
	})
}

func (s *SignStreamServer) handleConnection(ctx context.Context, conn *websocket.Conn) {
	var content []byte
	var keyName, keyType string
	var options map[string]string
	var rawToken *string

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			return
		}
		var chunk signChunk
		if err := conn.ReadJSON(&chunk); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("sign stream read error", logger.Error(err))
			}
			return
		}

		content = append(content, chunk.Data...)
		keyName = chunk.KeyName
		keyType = chunk.KeyType
		options = chunk.Options
		rawToken = chunk.Token

		if chunk.Last {
			break
		}
	}

	s.log.Debug("begin sign stream", logger.String("key_type", keyType), logger.String("key_name", keyName))

	if err := validateKeyTokenMatched(ctx, s.validator, rawToken, keyName); err != nil {
		s.send(conn, signStreamResponse{Error: err.Error()})
		return
	}

	signature, err := s.keys.Sign(ctx, keyName, content, options)
	if err != nil {
		s.send(conn, signStreamResponse{Error: err.Error()})
		return
	}
	s.send(conn, signStreamResponse{Signature: signature})
}

func (s *SignStreamServer) send(conn *websocket.Conn, resp signStreamResponse) {
	if err := conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return
	}
	if err := conn.WriteJSON(resp); err != nil {
		s.log.Warn("sign stream write error", logger.Error(err))
	}
}
