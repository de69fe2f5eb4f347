package dataplane

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/keyforge-project/keyforge/internal/logger"
)

// KeyInfoRequest is the GetKeyInfo request body: the key name (which
// encodes its type as a prefix, e.g. "pgp", handled upstream) and an
// optional bearer token required for private keys.
type KeyInfoRequest struct {
	KeyName string  `json:"key_name"`
	Token   *string `json:"token,omitempty"`
}

// KeyInfoResponse mirrors the original's attributes-or-error shape: a
// validation or lookup failure is reported in Error rather than as an
// HTTP error status, so a client always gets a 200 with a body it can
// inspect.
type KeyInfoResponse struct {
	Attributes map[string]string `json:"attributes"`
	Error      string            `json:"error,omitempty"`
}

// KeyInfoHandler serves GetKeyInfo over HTTP JSON.
type KeyInfoHandler struct {
	keys      KeyService
	validator TokenValidator
	log       logger.Logger
}

func NewKeyInfoHandler(keys KeyService, validator TokenValidator, log logger.Logger) *KeyInfoHandler {
	return &KeyInfoHandler{keys: keys, validator: validator, log: log}
}

func (h *KeyInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req KeyInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp := h.handle(r.Context(), req)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *KeyInfoHandler) handle(ctx context.Context, req KeyInfoRequest) KeyInfoResponse {
	if err := validateKeyTokenMatched(ctx, h.validator, req.Token, req.KeyName); err != nil {
		return KeyInfoResponse{Attributes: map[string]string{}, Error: err.Error()}
	}
	attrs, err := h.keys.Attributes(ctx, req.KeyName)
	if err != nil {
		h.log.Warn("key info lookup failed", logger.String("key_name", req.KeyName), logger.Error(err))
		return KeyInfoResponse{Attributes: map[string]string{}, Error: err.Error()}
	}
	return KeyInfoResponse{Attributes: attrs}
}
