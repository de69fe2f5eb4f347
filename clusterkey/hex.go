package clusterkey

import "encoding/hex"

// EncodeHex renders raw bytes as uppercase hex text, matching the
// envelope's on-disk convention for cluster key material.
func EncodeHex(value []byte) string {
	dst := make([]byte, hex.EncodedLen(len(value)))
	hex.Encode(dst, value)
	upper := make([]byte, len(dst))
	for i, b := range dst {
		if b >= 'a' && b <= 'f' {
			b -= 'a' - 'A'
		}
		upper[i] = b
	}
	return string(upper)
}

// DecodeHex parses hex text back into raw bytes, accepting either case.
func DecodeHex(value string) ([]byte, error) {
	return hex.DecodeString(value)
}
