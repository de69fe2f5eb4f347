package kms

import (
	"context"

	"github.com/keyforge-project/keyforge/internal/logger"
)

// Dummy is a pass-through Adapter: it returns its input unchanged. It
// exists for local development and tests only — never configure it in
// a production deployment, since it provides no protection for the
// cluster keys it is supposed to wrap.
type Dummy struct {
	log logger.Logger
}

func NewDummy(log logger.Logger) *Dummy {
	return &Dummy{log: log}
}

func (d *Dummy) Encode(_ context.Context, content string) (string, error) {
	d.log.Warn("dummy kms used for encoding, do not use in production")
	return content, nil
}

func (d *Dummy) Decode(_ context.Context, content string) (string, error) {
	d.log.Warn("dummy kms used for decoding, do not use in production")
	return content, nil
}
