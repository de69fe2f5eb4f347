package filehandler

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticRPM builds a minimal, structurally valid package: a 96-byte
// lead, a signature header with one placeholder entry, and a main
// header followed by arbitrary payload bytes.
func syntheticRPM(t *testing.T, payload []byte) []byte {
	t.Helper()

	lead := make([]byte, rpmLeadSize)
	sigBlock := buildRPMHeaderBlock(map[int32][]byte{rpmSigTagRSA: []byte("placeholder-sig")})

	var buf bytes.Buffer
	buf.Write(lead)
	buf.Write(sigBlock)
	if pad := align8(buf.Len()) - buf.Len(); pad > 0 {
		buf.Write(make([]byte, pad))
	}

	mainHeader := buildRPMHeaderBlock(map[int32][]byte{100: []byte("rpm-name-example")})
	buf.Write(mainHeader)
	buf.Write(payload)
	return buf.Bytes()
}

func TestRPMHandlerSplitAndAssembleRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pkg.rpm")
	payload := []byte("compressed-payload-bytes")
	require.NoError(t, os.WriteFile(path, syntheticRPM(t, payload), 0o644))

	h := &RPMHandler{}
	segments, err := h.SplitData(context.Background(), path, nil)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.True(t, bytes.HasSuffix(segments[1], payload))
	assert.Equal(t, segments[0], segments[1][:len(segments[1])-len(payload)])

	err = h.AssembleData(context.Background(), path, [][]byte{[]byte("header-sig"), []byte("payload-sig")}, nil)
	require.NoError(t, err)

	resigned, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(resigned, payload))

	// Re-parsing the resigned package still succeeds and recovers the
	// same main header and payload.
	segments2, err := h.SplitData(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, segments[0], segments2[0])
}

func TestRPMHandlerValidateOptions(t *testing.T) {
	h := &RPMHandler{}
	assert.Error(t, h.ValidateOptions(map[string]string{OptionDetached: "true"}))
	assert.Error(t, h.ValidateOptions(map[string]string{OptionKeyType: "x509"}))
	assert.NoError(t, h.ValidateOptions(map[string]string{OptionKeyType: "pgp"}))
}

func TestRPMHandlerRejectsTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.rpm")
	require.NoError(t, os.WriteFile(path, []byte("too short"), 0o644))

	h := &RPMHandler{}
	_, err := h.SplitData(context.Background(), path, nil)
	assert.Error(t, err)
}
