package clusterkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeHexRoundTrip(t *testing.T) {
	content := "AD12FF00"
	decoded, err := DecodeHex(content)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAD, 0x12, 0xFF, 0x00}, decoded)

	encoded := EncodeHex(decoded)
	assert.Equal(t, content, encoded)
}
