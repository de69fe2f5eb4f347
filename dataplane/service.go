package dataplane

import "context"

// KeyService is the subset of datakey.Service the data plane needs:
// attribute lookup for GetKeyInfo, signing for SignStream.
type KeyService interface {
	Attributes(ctx context.Context, idOrName string) (map[string]string, error)
	Sign(ctx context.Context, idOrName string, content []byte, options map[string]string) ([]byte, error)
}
