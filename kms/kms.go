// Package kms wraps the envelope layer's outermost key: whatever
// encrypts the cluster keys at rest. Adapter operates on hex text so
// callers never have to care whether the backing service speaks bytes,
// base64 or something else internally.
package kms

import (
	"context"
	"fmt"
)

// Adapter encodes and decodes hex-encoded material through an external
// key management service. content and the return value are both
// ASCII-hex strings, matching how cluster keys are stored.
type Adapter interface {
	Encode(ctx context.Context, content string) (string, error)
	Decode(ctx context.Context, content string) (string, error)
}

// Type identifies which Adapter implementation a deployment is configured
// to use.
type Type string

const (
	TypeDummy  Type = "dummy"
	TypeRemote Type = "remote"
)

// ParseType validates a configured KMS type string.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeDummy:
		return TypeDummy, nil
	case TypeRemote:
		return TypeRemote, nil
	default:
		return "", fmt.Errorf("kms: unsupported type %q", s)
	}
}

// InvokeError wraps a failure returned by the remote KMS so callers can
// distinguish "the service rejected the request" from a local bug.
type InvokeError struct {
	Op  string
	Err error
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("kms: %s failed: %v", e.Op, e.Err)
}

func (e *InvokeError) Unwrap() error { return e.Err }
